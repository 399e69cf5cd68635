package scheduling

import (
	"time"

	"github.com/teemow/agenda/internal/calendar"
)

// Slot is a free interval [Start, End).
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the slot length.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// FreeSlots sweeps events over [rangeStart, rangeEnd) and returns the gaps
// between them. The result is ascending and pairwise disjoint, and together
// with the clipped event intervals it covers the range exactly. Overlapping
// and nested events are handled by only ever moving the cursor forward.
// Events that do not end after they start are ignored.
func FreeSlots(rangeStart, rangeEnd time.Time, events []calendar.Event) []Slot {
	if !rangeStart.Before(rangeEnd) {
		return nil
	}

	sorted := make([]calendar.Event, 0, len(events))
	for _, e := range events {
		if e.End.After(e.Start) {
			sorted = append(sorted, e)
		}
	}
	calendar.SortByStart(sorted)

	slots := []Slot{}
	cursor := rangeStart
	for _, e := range sorted {
		if !cursor.Before(rangeEnd) {
			break
		}
		if !e.Start.Before(rangeEnd) {
			break
		}
		if e.Start.After(cursor) {
			slots = append(slots, Slot{Start: cursor, End: e.Start})
		}
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	if cursor.Before(rangeEnd) {
		slots = append(slots, Slot{Start: cursor, End: rangeEnd})
	}
	return slots
}
