package eventlog

import (
	"fmt"
	"time"

	"github.com/teemow/agenda/internal/calendar"
)

// Default window for create entries that carry neither start nor end, and
// the length assumed when only one of them is present.
const (
	defaultStartHour = 9
	defaultEndHour   = 10
	defaultDuration  = time.Hour
)

// Reconstruct rebuilds the events recorded by create entries in the segment
// for date. Lines without a summary count as malformed. Without start and end
// the event falls back to 09:00-10:00 on date in the store's zone; with only
// one of them it lasts an hour. Events that do not end after they start count
// as malformed.
func (s *Store) Reconstruct(date string) ([]calendar.Event, Stats, error) {
	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	segment := SegmentName(date)

	var events []calendar.Event
	var ignored, rejected int
	stats, err := s.scan(date, func(e Entry) {
		if e.Action != ActionCreate && e.Action != ActionMock {
			ignored++
			return
		}
		if e.Summary == "" {
			rejected++
			s.reportMalformed(segment, malformed(ReasonNoSummary, nil))
			return
		}

		start, end := e.Start, e.End
		switch {
		case start.IsZero() && end.IsZero():
			start = day.Add(defaultStartHour * time.Hour)
			end = day.Add(defaultEndHour * time.Hour)
		case end.IsZero():
			end = start.Add(defaultDuration)
		case start.IsZero():
			start = end.Add(-defaultDuration)
		}
		if !end.After(start) {
			rejected++
			s.reportMalformed(segment, malformed(ReasonWindow, fmt.Errorf("end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))))
			return
		}
		events = append(events, calendar.Event{
			ID:         e.EventID,
			Summary:    e.Summary,
			Start:      start,
			End:        end,
			Provenance: calendar.ProvenanceLog,
		})
	})
	stats.Ignored += ignored
	stats.Malformed += rejected
	stats.Events = len(events)
	return events, stats, err
}

// ReconstructRange rebuilds events overlapping [from, to) from every segment
// whose target date could hold one, ordered by start. Segments that cannot be
// read are skipped and reported through the returned error.
func (s *Store) ReconstructRange(from, to time.Time) ([]calendar.Event, Stats, error) {
	var (
		all   []calendar.Event
		total Stats
		errs  []error
	)

	// Target dates follow each event's own offset, so look one day either side.
	first := startOfDay(from.In(s.loc)).AddDate(0, 0, -1)
	last := startOfDay(to.In(s.loc)).AddDate(0, 0, 1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		events, stats, err := s.Reconstruct(day.Format(DateLayout))
		total.add(stats)
		if err != nil {
			errs = append(errs, err)
		}
		for _, e := range events {
			if e.Overlaps(from, to) {
				all = append(all, e)
			}
		}
	}
	total.Events = len(all)

	calendar.SortByStart(all)
	return all, total, joinErrors(errs)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
