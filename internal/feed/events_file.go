package feed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"weekcal/internal/layout"
	"weekcal/internal/week"
)

// fileEvent is one entry of the static events file.
type fileEvent struct {
	ID        string   `yaml:"id"`
	Day       int      `yaml:"day"`
	Start     string   `yaml:"start"`
	End       string   `yaml:"end"`
	Assignees []string `yaml:"assignees"`
	Color     string   `yaml:"color"`
}

type eventsFile struct {
	Events []fileEvent `yaml:"events"`
}

// LoadEventsFile reads static events:
//
//	events:
//	  - id: review
//	    day: 0          # column
//	    start: "09:00"
//	    end: "10:30"
//	    assignees: [Joe, Amy]
//	    color: "#ffd6a5"
func LoadEventsFile(path string) ([]layout.Event, error) {
	if path == "" {
		return nil, errors.New("events file path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f eventsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("events file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Events))
	out := make([]layout.Event, 0, len(f.Events))
	for i, fe := range f.Events {
		if fe.ID == "" {
			return nil, fmt.Errorf("events file %s: entry %d has no id", path, i)
		}
		if seen[fe.ID] {
			return nil, fmt.Errorf("events file %s: duplicate id %q", path, fe.ID)
		}
		seen[fe.ID] = true

		if fe.Day < 0 {
			return nil, fmt.Errorf("events file %s: %s: negative day", path, fe.ID)
		}
		start, err := week.ParseClock(fe.Start)
		if err != nil {
			return nil, fmt.Errorf("events file %s: %s: start: %w", path, fe.ID, err)
		}
		end, err := week.ParseClock(fe.End)
		if err != nil {
			return nil, fmt.Errorf("events file %s: %s: end: %w", path, fe.ID, err)
		}

		if end <= start {
			return nil, fmt.Errorf("events file %s: %s: end %s is not after start %s", path, fe.ID, fe.End, fe.Start)
		}

		color := fe.Color
		if color == "" {
			color = week.DefaultColor(fe.ID)
		}
		out = append(out, layout.Event{
			ID:        fe.ID,
			Column:    fe.Day,
			Start:     start,
			End:       end,
			Assignees: fe.Assignees,
			Color:     color,
		})
	}
	return out, nil
}
