package model

import "time"

// Occurrence is a single concrete instance of a calendar event after
// recurrence expansion, in the display timezone.
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey distinguishes occurrences of a recurring event; it is the
	// local start time in RFC 3339.
	InstanceKey string

	Summary  string
	Location string

	// Attendees are display labels (CN, else mail address) in feed order.
	Attendees []string

	// Color is the event's COLOR property, or the source color.
	Color string

	AllDay bool

	Start time.Time
	End   time.Time
}

// Key identifies the occurrence across sources.
func (o Occurrence) Key() string {
	return o.SourceID + "/" + o.UID + "/" + o.InstanceKey
}
