// Package board holds the laid-out week and serialises edits to it.
//
// Every commit rebuilds the whole layout from the bare events, so offsets and
// clusters are always those layout.Compute would produce for the current
// dataset.
package board

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/week"
)

var (
	ErrEventNotFound    = errors.New("board: event not found")
	ErrColumnOutOfRange = errors.New("board: column out of range")
	ErrTimeOutOfRange   = errors.New("board: time out of range")
)

// Move relocates an event, keeping its duration.
type Move struct {
	EventID string
	Start   int
	Column  int
}

// Resize changes the end of an event.
type Resize struct {
	EventID string
	End     int
}

// Snapshot is a consistent view of the board. Events are in layout order;
// the slice belongs to the caller, the clusters are shared and immutable.
type Snapshot struct {
	Version   uint64
	Week      week.Week
	Events    []layout.PositionedEvent
	UpdatedAt time.Time
}

// geometry is the part of an event a commit can change.
type geometry struct {
	Column int
	Start  int
	End    int
}

// Board is safe for concurrent use.
type Board struct {
	mu sync.Mutex

	snap int
	wk   week.Week

	events    []layout.PositionedEvent
	edits     map[string]geometry
	version   uint64
	updatedAt time.Time

	now func() time.Time
}

// New creates an empty board for wk. Committed times are floored to
// snapMinutes; zero disables snapping.
func New(wk week.Week, snapMinutes int) *Board {
	return &Board{
		snap:  snapMinutes,
		wk:    wk,
		edits: make(map[string]geometry),
		now:   time.Now,
	}
}

// Replace swaps in a freshly loaded dataset. Edits committed earlier are
// re-applied to events whose IDs are still present; the rest are forgotten.
func (b *Board) Replace(wk week.Week, events []layout.Event) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	bare := make([]layout.Event, 0, len(events))
	kept := make(map[string]geometry)
	for _, e := range events {
		if g, ok := b.edits[e.ID]; ok && wk.Start.Equal(b.wk.Start) {
			e.Column, e.Start, e.End = g.Column, g.Start, g.End
			kept[e.ID] = g
		}
		bare = append(bare, e)
	}
	if dropped := len(b.edits) - len(kept); dropped > 0 {
		appLog.Debug("board: edits dropped on replace", "count", dropped)
	}

	b.wk = wk
	b.edits = kept
	b.commit(bare)
	appLog.Info("board replaced", "events", len(bare), "edits", len(kept), "week_start", wk.Start.Format(time.DateOnly))
	return b.snapshot()
}

// Move applies an "event moved" commit.
func (b *Board) Move(m Move) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.index(m.EventID)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrEventNotFound, m.EventID)
	}
	if m.Column < 0 || m.Column >= b.wk.Days {
		return Snapshot{}, fmt.Errorf("%w: %d not in [0, %d)", ErrColumnOutOfRange, m.Column, b.wk.Days)
	}

	e := b.events[i].Bare()
	dur := e.Duration()
	start := b.floor(m.Start)
	if start < 0 || start+dur > layout.MinutesPerDay {
		return Snapshot{}, fmt.Errorf("%w: start %d with duration %d", ErrTimeOutOfRange, start, dur)
	}
	e.Column, e.Start, e.End = m.Column, start, start+dur

	b.apply(i, e)
	appLog.Debug("board: event moved", "id", e.ID, "column", e.Column, "start", e.Start)
	return b.snapshot(), nil
}

// Resize applies an "event resized" commit.
func (b *Board) Resize(r Resize) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.index(r.EventID)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrEventNotFound, r.EventID)
	}

	e := b.events[i].Bare()
	end := b.floor(r.End)
	if end <= e.Start || end > layout.MinutesPerDay {
		return Snapshot{}, fmt.Errorf("%w: end %d for start %d", ErrTimeOutOfRange, end, e.Start)
	}
	e.End = end

	b.apply(i, e)
	appLog.Debug("board: event resized", "id", e.ID, "end", e.End)
	return b.snapshot(), nil
}

// Snapshot returns the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Board) snapshot() Snapshot {
	return Snapshot{
		Version:   b.version,
		Week:      b.wk,
		Events:    slices.Clone(b.events),
		UpdatedAt: b.updatedAt,
	}
}

func (b *Board) index(id string) int {
	return slices.IndexFunc(b.events, func(p layout.PositionedEvent) bool {
		return p.ID == id
	})
}

// apply replaces the event at i and recomputes the whole board.
func (b *Board) apply(i int, e layout.Event) {
	bare := layout.Strip(b.events)
	bare[i] = e
	b.edits[e.ID] = geometry{Column: e.Column, Start: e.Start, End: e.End}
	b.commit(bare)
}

func (b *Board) commit(bare []layout.Event) {
	b.events = layout.Compute(bare)
	b.version++
	b.updatedAt = b.now()
}

func (b *Board) floor(minutes int) int {
	if b.snap <= 0 || minutes < 0 {
		return minutes
	}
	return minutes - minutes%b.snap
}
