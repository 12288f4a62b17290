package layout

import "slices"

// ColumnGroup holds the events of one column in input order.
type ColumnGroup struct {
	Column int
	Events []Event
}

// GroupByColumn partitions events by Column. Groups appear in the order their
// column was first seen; events keep their input order inside a group.
func GroupByColumn(events []Event) []ColumnGroup {
	index := make(map[int]int)
	var groups []ColumnGroup
	for _, ev := range events {
		i, ok := index[ev.Column]
		if !ok {
			i = len(groups)
			index[ev.Column] = i
			groups = append(groups, ColumnGroup{Column: ev.Column})
		}
		groups[i].Events = append(groups[i].Events, ev)
	}
	return groups
}

// Compute lays out every column independently and concatenates the results
// in first-seen column order. Within a column the result is sorted by
// offset, then start ascending, then end descending.
//
// Every input event appears exactly once in the output. Malformed input
// (end <= start, duplicate IDs) yields a deterministic layout rather than an
// error.
func Compute(events []Event) []PositionedEvent {
	out := make([]PositionedEvent, 0, len(events))
	nextID := 0
	for _, g := range GroupByColumn(events) {
		var positioned []PositionedEvent
		positioned, nextID = computeColumn(g.Events, nextID)
		out = append(out, positioned...)
	}
	return out
}

// ComputeColumn lays out the events of a single column. The Column field of
// the events is not consulted.
func ComputeColumn(events []Event) []PositionedEvent {
	out, _ := computeColumn(events, 0)
	return out
}

// computeColumn numbers clusters from firstID and returns the next free ID.
func computeColumn(events []Event, firstID int) ([]PositionedEvent, int) {
	sorted := make([]*entry, 0, len(events))
	for _, ev := range events {
		sorted = append(sorted, &entry{Event: ev.clone()})
	}
	slices.SortStableFunc(sorted, func(a, b *entry) int {
		return byStartThenLongest(a.Event, b.Event)
	})

	clusters, union := sweep(sorted)

	frozen := make(map[*accumulator]*Cluster, len(clusters))
	for i, acc := range clusters {
		frozen[acc] = &Cluster{
			ID:        firstID + i,
			MaxOffset: acc.maxOffset,
			Assignees: slices.Clone(union),
		}
	}

	out := make([]PositionedEvent, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, PositionedEvent{
			Event:   e.Event,
			Offset:  e.pos.offset,
			Cluster: frozen[e.pos.cluster],
		})
	}
	slices.SortStableFunc(out, byOffsetThenStart)

	return out, firstID + len(clusters)
}
