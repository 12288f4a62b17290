// Package week maps calendar occurrences onto the columns of a week grid.
package week

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

var ErrBadClock = errors.New("week: clock must be HH:MM")

// Week is a run of Days consecutive local days starting at Start (local
// midnight).
type Week struct {
	Start time.Time
	Days  int
}

// Containing returns the week that contains t, beginning on first and
// spanning days columns. t's location is the grid's location.
func Containing(t time.Time, first time.Weekday, days int) Week {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	back := (int(midnight.Weekday()) - int(first) + 7) % 7
	return Week{Start: midnight.AddDate(0, 0, -back), Days: days}
}

// End is the exclusive end of the week.
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, w.Days)
}

// Day returns local midnight of column col.
func (w Week) Day(col int) time.Time {
	return w.Start.AddDate(0, 0, col)
}

// Column returns the column t falls into and the minutes since that
// column's midnight. ok is false outside the week.
func (w Week) Column(t time.Time) (col, minute int, ok bool) {
	t = t.In(w.Start.Location())
	for col = 0; col < w.Days; col++ {
		if !t.Before(w.Day(col)) && t.Before(w.Day(col+1)) {
			return col, t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, 0, false
}

// Place converts occurrences into layout events. All-day occurrences and
// occurrences starting outside the week are skipped. An occurrence running
// past midnight is clipped to the end of its first day.
func (w Week) Place(occs []model.Occurrence) []layout.Event {
	out := make([]layout.Event, 0, len(occs))
	skipped := 0
	for _, occ := range occs {
		if occ.AllDay {
			skipped++
			continue
		}
		col, start, ok := w.Column(occ.Start)
		if !ok {
			skipped++
			continue
		}

		end := start + int(occ.End.Sub(occ.Start).Minutes())
		if end > layout.MinutesPerDay {
			end = layout.MinutesPerDay
		}

		id := occ.Key()
		color := occ.Color
		if color == "" {
			color = DefaultColor(id)
		}

		out = append(out, layout.Event{
			ID:        id,
			Column:    col,
			Start:     start,
			End:       end,
			Assignees: append([]string(nil), occ.Attendees...),
			Color:     color,
		})
	}
	if skipped > 0 {
		appLog.Debug("week: occurrences not placed", "skipped", skipped, "week_start", w.Start.Format(time.DateOnly))
	}
	return out
}

// DefaultColor derives a stable pastel color from id.
func DefaultColor(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return fmt.Sprintf("hsl(%d, 100%%, 80%%)", h.Sum32()%360)
}

// ParseClock parses "HH:MM" (00:00 to 24:00) into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	total := h*60 + m
	if h < 0 || m < 0 || m > 59 || total > layout.MinutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return total, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
