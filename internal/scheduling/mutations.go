package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/eventlog"
	"github.com/teemow/agenda/internal/logging"
)

// NewEvent describes an event to create.
type NewEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// EventChanges lists the fields to change on an existing event. Nil fields
// keep their current value.
type EventChanges struct {
	Summary     *string
	Description *string
	Start       *time.Time
	End         *time.Time
}

func (c EventChanges) complete() bool {
	return c.Summary != nil && c.Description != nil && c.Start != nil && c.End != nil
}

func (c EventChanges) empty() bool {
	return c.Summary == nil && c.Description == nil && c.Start == nil && c.End == nil
}

func (s *Service) record(ctx context.Context, entry eventlog.Entry) {
	if err := s.log.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to record calendar mutation",
			slog.String("action", string(entry.Action)),
			logging.Err(err))
	}
}

// CreateEvent records the creation in the event log and then inserts the
// event through the gateway. Without a gateway the logged event is returned
// with log provenance and will be served by later reads.
func (s *Service) CreateEvent(ctx context.Context, ev NewEvent) (calendar.Event, error) {
	if ev.Summary == "" {
		return calendar.Event{}, invalidf("summary is required")
	}
	if !ev.Start.Before(ev.End) {
		return calendar.Event{}, invalidf("end must be after start")
	}

	s.record(ctx, eventlog.Entry{
		Action:  eventlog.ActionCreate,
		Summary: ev.Summary,
		Start:   ev.Start,
		End:     ev.End,
	})

	event := calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
	}

	s.sweep(ctx)
	if s.gateway == nil {
		event.Provenance = calendar.ProvenanceLog
		s.logger.Info("event recorded offline", logging.Provenance(string(event.Provenance)))
		return event, nil
	}

	created, err := s.gateway.Insert(ctx, s.calendarID, event)
	if err != nil {
		return calendar.Event{}, err
	}
	return created, nil
}

// UpdateEvent applies changes to an existing event. When any field is left
// out the current event is fetched first so it is not clobbered.
func (s *Service) UpdateEvent(ctx context.Context, eventID string, changes EventChanges) (calendar.Event, error) {
	if eventID == "" {
		return calendar.Event{}, invalidf("event_id is required")
	}
	if changes.empty() {
		return calendar.Event{}, invalidf("no fields to update")
	}

	s.sweep(ctx)
	if s.gateway == nil {
		return calendar.Event{}, calendar.ErrBackendUnavailable
	}

	var merged calendar.Event
	if !changes.complete() {
		current, err := s.gateway.Get(ctx, s.calendarID, eventID)
		if err != nil {
			return calendar.Event{}, err
		}
		merged = current
	}
	if changes.Summary != nil {
		merged.Summary = *changes.Summary
	}
	if changes.Description != nil {
		merged.Description = *changes.Description
	}
	if changes.Start != nil {
		merged.Start = *changes.Start
	}
	if changes.End != nil {
		merged.End = *changes.End
	}
	if !merged.Start.Before(merged.End) {
		return calendar.Event{}, invalidf("end must be after start")
	}

	updated, err := s.gateway.Update(ctx, s.calendarID, eventID, merged)
	if err != nil {
		return calendar.Event{}, err
	}

	s.record(ctx, eventlog.Entry{
		Action:  eventlog.ActionUpdate,
		EventID: eventID,
		Summary: updated.Summary,
		Start:   updated.Start,
		End:     updated.End,
	})
	return updated, nil
}

// DeleteEvent removes an event. The deletion is logged under the event's own
// date when it can be fetched, and under today otherwise.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) (calendar.Event, error) {
	if eventID == "" {
		return calendar.Event{}, invalidf("event_id is required")
	}

	s.sweep(ctx)
	if s.gateway == nil {
		return calendar.Event{}, calendar.ErrBackendUnavailable
	}

	existing, err := s.gateway.Get(ctx, s.calendarID, eventID)
	switch {
	case errors.Is(err, calendar.ErrEventNotFound):
		return calendar.Event{}, err
	case err != nil:
		s.logger.Debug("could not fetch event before delete", logging.Err(err))
		existing = calendar.Event{ID: eventID}
	}

	if err := s.gateway.Delete(ctx, s.calendarID, eventID); err != nil {
		return calendar.Event{}, err
	}

	date := s.log.DateKey(s.now())
	if !existing.Start.IsZero() {
		date = existing.Start.Format(eventlog.DateLayout)
	}
	s.record(ctx, eventlog.Entry{
		Action:  eventlog.ActionDelete,
		EventID: eventID,
		Summary: existing.Summary,
		Date:    date,
	})
	return existing, nil
}

// GetEvent fetches a single event from the gateway.
func (s *Service) GetEvent(ctx context.Context, eventID string) (calendar.Event, error) {
	if eventID == "" {
		return calendar.Event{}, invalidf("event_id is required")
	}
	s.sweep(ctx)
	if s.gateway == nil {
		return calendar.Event{}, calendar.ErrBackendUnavailable
	}
	return s.gateway.Get(ctx, s.calendarID, eventID)
}

// ListCalendars returns the calendars visible to the configured credentials.
func (s *Service) ListCalendars(ctx context.Context) ([]calendar.CalendarInfo, error) {
	s.sweep(ctx)
	if s.gateway == nil {
		return nil, calendar.ErrBackendUnavailable
	}
	return s.gateway.Calendars(ctx)
}

// DailySchedule returns the activity recorded for date (YYYY-MM-DD).
func (s *Service) DailySchedule(date string) ([]eventlog.Entry, error) {
	if _, err := time.ParseInLocation(eventlog.DateLayout, date, s.loc); err != nil {
		return nil, invalidf("date must be YYYY-MM-DD: %v", err)
	}
	entries, _, err := s.log.Entries(date)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity for %s: %w", date, err)
	}
	return entries, nil
}

// SearchActivity finds logged activity mentioning query.
func (s *Service) SearchActivity(query string) ([]eventlog.Match, error) {
	if query == "" {
		return nil, invalidf("query is required")
	}
	return s.log.Search(query)
}
