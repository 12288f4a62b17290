package web

import (
	"time"

	"weekcal/internal/layout"
)

// layoutResponse is the JSON shape of /api/layout and of every commit.
type layoutResponse struct {
	Version      uint64            `json:"version"`
	WeekStart    string            `json:"week_start,omitempty"`
	Timezone     string            `json:"timezone,omitempty"`
	Days         int               `json:"days"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Events       []positionedDTO   `json:"events"`
	Clusters     []clusterDTO      `json:"clusters"`
	CompanyHours []companyHoursDTO `json:"company_hours"`
}

type positionedDTO struct {
	ID         string   `json:"id"`
	Column     int      `json:"column"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	StartClock string   `json:"start_clock"`
	EndClock   string   `json:"end_clock"`
	Assignees  []string `json:"assignees"`
	Color      string   `json:"color"`
	Offset     int      `json:"offset"`
	ClusterID  int      `json:"cluster_id"`
	MaxOffset  int      `json:"max_offset"`
}

type clusterDTO struct {
	ID        int      `json:"id"`
	MaxOffset int      `json:"max_offset"`
	Assignees []string `json:"assignees"`
}

// companyHoursDTO gives business hours in minutes since midnight.
type companyHoursDTO struct {
	Column  int    `json:"column"`
	Weekday string `json:"weekday"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// eventsResponse is the JSON shape of /api/events.
type eventsResponse struct {
	Version uint64         `json:"version"`
	Events  []layout.Event `json:"events"`
}

type moveRequest struct {
	EventID string `json:"event_id"`
	Start   *int   `json:"start"`
	Column  *int   `json:"column"`
}

type resizeRequest struct {
	EventID string `json:"event_id"`
	End     *int   `json:"end"`
}
