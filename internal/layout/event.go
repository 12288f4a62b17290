package layout

// MinutesPerDay is the length of one column in minutes.
const MinutesPerDay = 24 * 60

// Event is a caller-owned appointment in one column of the grid.
type Event struct {
	// ID identifies the event for lookups; it never influences ordering.
	ID string `json:"id" yaml:"id"`

	// Column is the lane (e.g. weekday index) the event is drawn in.
	Column int `json:"column" yaml:"column"`

	// Start / End are minutes since the column's origin (local midnight).
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	Assignees []string `json:"assignees" yaml:"assignees"`
	Color     string   `json:"color" yaml:"color"`
}

// Duration returns End - Start, which may be zero or negative for
// malformed input.
func (e Event) Duration() int {
	return e.End - e.Start
}

// clone returns a copy that does not share the assignee slice.
func (e Event) clone() Event {
	out := e
	if e.Assignees != nil {
		out.Assignees = append([]string(nil), e.Assignees...)
	}
	return out
}

// Cluster is a group of events laid out together. It is built during one
// computation and never modified afterwards; every member holds the same
// pointer.
type Cluster struct {
	// ID is unique within one Compute / ComputeColumn call.
	ID int `json:"id"`

	// MaxOffset is the number of horizontal slots the cluster spans.
	MaxOffset int `json:"max_offset"`

	// Assignees is the de-duplicated union of the assignee labels of every
	// event in the column, in first-seen order. All clusters of a column
	// carry the same list.
	Assignees []string `json:"assignees"`
}

// PositionedEvent is an Event with its slot and cluster.
type PositionedEvent struct {
	Event
	Offset  int
	Cluster *Cluster
}

// Bare strips the layout information, returning an Event suitable for
// re-submission to Compute.
func (p PositionedEvent) Bare() Event {
	return p.Event.clone()
}

// Strip converts a previous result back into bare events, keeping order.
func Strip(positioned []PositionedEvent) []Event {
	out := make([]Event, 0, len(positioned))
	for _, p := range positioned {
		out = append(out, p.Bare())
	}
	return out
}
