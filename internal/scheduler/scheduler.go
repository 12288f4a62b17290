// Package scheduler keeps the board in step with the calendar sources.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weekcal/internal/board"
	"weekcal/internal/config"
	"weekcal/internal/feed"
	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/week"
)

// Loader supplies the occurrences of a time range.
type Loader interface {
	Load(ctx context.Context, from, to time.Time) ([]model.Occurrence, error)
}

// Scheduler reloads the board on a cron schedule and on demand.
type Scheduler struct {
	cron  *cron.Cron
	spec  string
	loc   *time.Location
	first time.Weekday
	days  int

	eventsFile string

	loader Loader
	board  *board.Board

	// refreshMu serialises refreshes; cron ticks and HTTP requests may race.
	refreshMu sync.Mutex
	now       func() time.Time
}

// New creates a scheduler refreshing b from loader on cfg.RefreshCron, with
// weeks computed in loc. Call Start to run the schedule.
func New(cfg *config.Config, loc *time.Location, loader Loader, b *board.Board) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		spec:       cfg.RefreshCron,
		loc:        loc,
		first:      cfg.FirstWeekday(),
		days:       cfg.Days,
		eventsFile: cfg.EventsFile,
		loader:     loader,
		board:      b,
		now:        time.Now,
	}
}

// Start registers the refresh job and starts the cron runner. Jobs run with
// ctx until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RefreshNow(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("add refresh job %q: %w", s.spec, err)
	}

	s.cron.Start()
	appLog.Info("scheduler started", "refresh", s.spec, "timezone", s.loc.String())
	return nil
}

// Stop halts the runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	appLog.Info("scheduler stopped")
}

// CurrentWeek is the week containing now in the grid's timezone.
func (s *Scheduler) CurrentWeek() week.Week {
	return week.Containing(s.now().In(s.loc), s.first, s.days)
}

// RefreshNow loads the current week and replaces the board. When every
// source fails the board is left as it was.
func (s *Scheduler) RefreshNow(ctx context.Context) (board.Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	started := time.Now()
	wk := s.CurrentWeek()

	occs, err := s.loader.Load(ctx, wk.Start, wk.End())
	if errors.Is(err, feed.ErrAllSourcesFailed) {
		return board.Snapshot{}, err
	}
	if err != nil {
		appLog.Warn("refresh: some sources failed", "reason", err.Error())
	}

	events := uniqueIDs(append(wk.Place(occs), s.staticEvents()...))

	snap := s.board.Replace(wk, events)
	appLog.Info("refresh completed",
		"week_start", wk.Start.Format(time.DateOnly),
		"events", len(events),
		"version", snap.Version,
		"elapsed", time.Since(started).String(),
	)
	return snap, nil
}

// staticEvents reads the events file, keeping events inside the grid.
func (s *Scheduler) staticEvents() []layout.Event {
	if s.eventsFile == "" {
		return nil
	}
	events, err := feed.LoadEventsFile(s.eventsFile)
	if err != nil {
		appLog.Error("events file ignored", err, "path", s.eventsFile)
		return nil
	}
	out := events[:0]
	for _, e := range events {
		if e.Column >= s.days {
			appLog.Warn("static event outside the grid", "id", e.ID, "day", e.Column)
			continue
		}
		out = append(out, e)
	}
	return out
}

// uniqueIDs keeps the first event of every ID. Board commits address events
// by ID, so a later duplicate would be unreachable.
func uniqueIDs(events []layout.Event) []layout.Event {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, e := range events {
		if seen[e.ID] {
			appLog.Warn("duplicate event id skipped", "id", e.ID, "day", e.Column)
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}
