package layout

import "cmp"

// Overlaps reports whether a's start or a's end lies strictly inside b.
//
// The predicate is not symmetric: an event that fully contains b does not
// overlap b by this definition (although b overlaps it), and two events with
// identical times do not overlap each other. Touching boundaries
// (a.End == b.Start) never overlap.
func Overlaps(a, b Event) bool {
	if a.Start > b.Start && a.Start < b.End {
		return true
	}
	return a.End > b.Start && a.End < b.End
}

// byStartThenLongest orders by start ascending, then end descending.
func byStartThenLongest(a, b Event) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(b.End, a.End)
}

// byOffsetThenStart is the output order of a column.
func byOffsetThenStart(a, b PositionedEvent) int {
	if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
		return c
	}
	return byStartThenLongest(a.Event, b.Event)
}
