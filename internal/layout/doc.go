// Package layout places overlapping calendar events side by side inside
// their day column.
//
// Given an unordered list of events (start/end in minutes, a column such as
// a weekday lane), Compute groups them by column, builds overlap clusters and
// gives every event a horizontal slot (Offset) and every cluster a slot count
// (MaxOffset). Events that merely touch (one ends exactly when the other
// starts) may share a slot.
//
// The assignment is a greedy single pass, not an optimal packing:
//
//   - events are visited by start ascending, longer first on equal starts
//   - each visited event forms a segment with the events it directly overlaps
//   - a segment with no placed member starts a new cluster and numbers its
//     members 0..n-1
//   - otherwise new members reclaim a slot below the visited event's own slot,
//     then the lowest slot whose occupants they do not overlap, and only then
//     grow the cluster
//
// Reclaimed slots are not checked against their occupants, and the slot
// search only asks whether the new member's own boundaries fall inside an
// occupant. Either way two overlapping events can end up in the same slot of
// one cluster, e.g. 60-105 and 75-105 next to 15-60, 30-75 and 45-90.
//
// The package is stateless: every call starts from bare events and the
// returned clusters are frozen. Callers that edit events strip the previous
// result with Strip and call Compute again over the whole list.
//
// Usage:
//
//	positioned := layout.Compute(events)
//	for _, p := range positioned {
//		fmt.Println(p.ID, p.Offset, p.Cluster.MaxOffset)
//	}
package layout
