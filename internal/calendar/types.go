package calendar

import (
	"sort"
	"time"
)

// Provenance records where an Event came from.
type Provenance string

const (
	// ProvenanceRemote marks events served by a Gateway.
	ProvenanceRemote Provenance = "remote"
	// ProvenanceLog marks events rebuilt from the local event log.
	ProvenanceLog Provenance = "reconstructed-from-log"
)

// Event is a calendar entry as seen by the scheduling engine.
type Event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Provenance  Provenance `json:"provenance"`
}

// Overlaps reports whether the event intersects the half-open range [start, end).
func (e Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// CalendarInfo describes a calendar visible to the configured credentials.
type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	TimeZone   string `json:"time_zone,omitempty"`
	Primary    bool   `json:"primary"`
	AccessRole string `json:"access_role,omitempty"`
}

// SortByStart orders events by start time. Events with equal starts keep
// their relative order.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
