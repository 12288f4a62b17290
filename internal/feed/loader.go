// Package feed gathers calendar occurrences from every configured source.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"weekcal/internal/caldav"
	"weekcal/internal/config"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

var ErrAllSourcesFailed = errors.New("feed: every source failed")

// Loader turns ICS and CalDAV sources into occurrences.
type Loader struct {
	fetcher *ics.Fetcher
	sources []ics.Source
	colors  map[string]string

	caldav      *caldav.Client
	caldavColor string

	loc *time.Location
}

// NewLoader builds a Loader from cfg. Occurrences are expanded in loc.
func NewLoader(cfg *config.Config, loc *time.Location) *Loader {
	l := &Loader{
		fetcher: ics.NewFetcher(cfg.CacheDir, cfg.FetchTimeout()),
		colors:  make(map[string]string),
		loc:     loc,
	}
	for _, s := range cfg.ICS {
		if s.URL == "" {
			continue
		}
		l.sources = append(l.sources, ics.Source{ID: s.ID, URL: s.URL})
		if s.Color != "" {
			l.colors[s.ID] = s.Color
		}
	}
	if cfg.CalDAV != nil {
		dav := caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.Calendars, cfg.FetchTimeout())
		if dav.IsConfigured() {
			l.caldav = dav
			l.caldavColor = cfg.CalDAV.Color
		} else {
			appLog.Warn("caldav section incomplete, ignoring it")
		}
	}
	return l
}

// Load returns every occurrence in [from, to).
//
// A failing source does not abort the load: the occurrences of the other
// sources are returned together with the joined failures. When no source
// produced a body the error wraps ErrAllSourcesFailed and the slice is nil.
func (l *Loader) Load(ctx context.Context, from, to time.Time) ([]model.Occurrence, error) {
	results, errs := l.fetcher.FetchAll(ctx, l.sources)
	if l.caldav != nil {
		davResults, davErrs := l.caldav.Fetch(ctx, from, to)
		results = append(results, davResults...)
		errs = append(errs, davErrs...)
	}

	if len(results) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}

	var parsed []ics.ParsedEvent
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", res.Source.ID, err))
			continue
		}
		parsed = append(parsed, events...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: l.loc,
		RangeStart:      from,
		RangeEnd:        to,
	})
	if err != nil {
		return nil, err
	}

	occs := expanded.Occurrences
	if occs == nil {
		occs = []model.Occurrence{}
	}
	for i := range occs {
		if occs[i].Color == "" {
			occs[i].Color = l.colorOf(occs[i].SourceID)
		}
	}

	appLog.Info("feed loaded",
		"sources", len(results),
		"failed", len(errs),
		"events", len(parsed),
		"occurrences", len(occs),
	)
	return occs, errors.Join(errs...)
}

func (l *Loader) colorOf(sourceID string) string {
	if strings.HasPrefix(sourceID, caldav.SourcePrefix) {
		return l.caldavColor
	}
	return l.colors[sourceID]
}
