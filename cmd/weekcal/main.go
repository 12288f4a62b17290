package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weekcal/internal/board"
	"weekcal/internal/config"
	"weekcal/internal/feed"
	appLog "weekcal/internal/log"
	"weekcal/internal/scheduler"
	"weekcal/internal/web"
	"weekcal/internal/week"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	logLevel   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file when set.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, ok := appLog.ParseLevel(conf.LogLevel)
	if !ok {
		appLog.Warn("unknown log level, using INFO", "log_level", conf.LogLevel)
	}
	appLog.SetLevel(level)

	appLog.Info("weekcal starting", "version", version)

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"days", conf.Days,
		"refresh", conf.RefreshCron,
		"snap_minutes", conf.SnapMinutes,
		"ics_count", len(conf.ICS),
		"caldav", conf.CalDAV != nil,
		"events_file", conf.EventsFile,
		"once", flags.once,
	)

	if err := run(conf, loc, flags.once); err != nil {
		os.Exit(1)
	}
	appLog.Info("weekcal exiting")
}

// run wires the service and blocks until shutdown. Errors are logged
// here; the caller only decides the exit code.
func run(conf *config.Config, loc *time.Location, once bool) error {
	loader := feed.NewLoader(conf, loc)
	b := board.New(week.Week{Days: conf.Days}, conf.SnapMinutes)
	sched := scheduler.New(conf, loc, loader, b)
	srv := web.NewServer(conf, b, sched)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := sched.RefreshNow(ctx)
	if err != nil {
		appLog.Error("initial refresh failed", err)
		if once {
			return err
		}
	}

	if once {
		if err := srv.EncodeLayout(os.Stdout, snap); err != nil {
			appLog.Error("failed to write layout", err)
			return err
		}
		return nil
	}

	if err := sched.Start(ctx); err != nil {
		appLog.Error("failed to start scheduler", err)
		return err
	}
	defer sched.Stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		return err
	}
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./weekcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh once, print the layout as JSON and exit")
	flag.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error (overrides config if set)")

	flag.Parse()

	return cfg
}
