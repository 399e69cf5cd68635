package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/eventlog"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

// Default working hours used by FindAvailableSlots callers that pass none.
const (
	DefaultWorkdayStartHour = 9
	DefaultWorkdayEndHour   = 18
)

// ErrInvalidArgument wraps every validation failure returned by Service.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Source tells where the events of an EventList came from.
type Source string

const (
	// SourceRemote means the gateway answered.
	SourceRemote Source = "remote"
	// SourceLog means no gateway is configured and the log was used.
	SourceLog Source = "log"
	// SourceLogFallback means the gateway failed and the log was used instead.
	SourceLogFallback Source = "log-fallback"
)

// EventList is the result of ListEvents. Errors holds descriptions of the
// failures that forced a fallback; callers treat a non-empty Errors as
// unreliable data.
type EventList struct {
	Events []calendar.Event `json:"events"`
	Errors []string         `json:"errors,omitempty"`
	Source Source           `json:"source"`
}

// Config holds the collaborators of a Service.
type Config struct {
	// Gateway may be nil, which means no calendar backend is configured.
	Gateway    calendar.Gateway
	Log        *eventlog.Store
	CalendarID string
	// Location is used to interpret dates and working hours.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// Service implements the scheduling operations.
type Service struct {
	gateway    calendar.Gateway
	log        *eventlog.Store
	calendarID string
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewService creates a Service. A nil Log is an error; a nil Gateway is not.
func NewService(cfg Config) (*Service, error) {
	if cfg.Log == nil {
		return nil, errors.New("event log store is required")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = calendar.DefaultCalendarID
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		gateway:    cfg.Gateway,
		log:        cfg.Log,
		calendarID: cfg.CalendarID,
		loc:        cfg.Location,
		now:        cfg.Now,
		logger:     logging.WithComponent(cfg.Logger, "scheduling"),
		metrics:    cfg.Metrics,
	}, nil
}

// Location returns the zone used for dates and working hours.
func (s *Service) Location() *time.Location {
	return s.loc
}

// BackendAvailable reports whether a gateway is configured.
func (s *Service) BackendAvailable() bool {
	return s.gateway != nil
}

// sweep applies log retention. It runs before every gateway access attempt,
// whether or not a gateway is configured, and never fails the caller.
func (s *Service) sweep(ctx context.Context) {
	report := s.log.Cleanup(s.now())
	if n := len(report.Removed); n > 0 {
		s.metrics.RecordSegmentsPruned(ctx, instrumentation.StatusSuccess, n)
	}
	if n := len(report.Failures); n > 0 {
		s.metrics.RecordSegmentsPruned(ctx, instrumentation.StatusError, n)
		s.logger.Warn("event log cleanup incomplete", logging.Err(report.Err()))
	}
}

// ListEvents returns events overlapping [from, to) ordered by start. The log
// is consulted only when the gateway is absent or fails.
func (s *Service) ListEvents(ctx context.Context, from, to time.Time) (EventList, error) {
	if !from.Before(to) {
		return EventList{}, invalidf("time_max must be after time_min")
	}
	s.sweep(ctx)

	var list EventList
	switch {
	case s.gateway == nil:
		list.Source = SourceLog
	default:
		events, err := s.gateway.List(ctx, s.calendarID, from, to)
		if err == nil {
			list.Source = SourceRemote
			list.Events = Merge(events)
			return list, nil
		}
		s.logger.Warn("calendar list failed, falling back to event log", logging.Err(err))
		list.Errors = append(list.Errors, err.Error())
		list.Source = SourceLogFallback
	}

	logged, stats, err := s.log.ReconstructRange(from, to)
	if err != nil {
		list.Errors = append(list.Errors, err.Error())
	}
	list.Events = Merge(logged)
	s.logger.Debug("events reconstructed from log",
		logging.Provenance(string(calendar.ProvenanceLog)),
		slog.Int("events", len(list.Events)),
		slog.Int("malformed", stats.Malformed))
	return list, nil
}

// Availability is the answer to CheckAvailability.
type Availability struct {
	Free      bool             `json:"free"`
	Conflicts []calendar.Event `json:"conflicts,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

// CheckAvailability reports whether [start, end) is free. Any event in the
// range, or any error while listing, means busy.
func (s *Service) CheckAvailability(ctx context.Context, start, end time.Time) (Availability, error) {
	list, err := s.ListEvents(ctx, start, end)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		Free:      len(list.Events) == 0 && len(list.Errors) == 0,
		Conflicts: list.Events,
		Errors:    list.Errors,
	}, nil
}

// FindAvailableSlots returns the free slots of date between startHour and
// endHour in the service's zone. When the event data is unreliable no slots
// are returned.
func (s *Service) FindAvailableSlots(ctx context.Context, date string, startHour, endHour int) ([]Slot, error) {
	day, err := time.ParseInLocation(eventlog.DateLayout, date, s.loc)
	if err != nil {
		return nil, invalidf("date must be YYYY-MM-DD: %v", err)
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, invalidf("hours must satisfy 0 <= start_hour < end_hour <= 24")
	}

	rangeStart := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, s.loc)
	rangeEnd := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, s.loc)

	list, err := s.ListEvents(ctx, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}
	if len(list.Errors) > 0 {
		return []Slot{}, nil
	}
	return FreeSlots(rangeStart, rangeEnd, list.Events), nil
}

// Merge concatenates event lists, dropping later duplicates, and returns the
// result ordered by start. Two events are duplicates when both carry an id and
// the ids match, or otherwise when summary, start and end all match.
func Merge(lists ...[]calendar.Event) []calendar.Event {
	type naturalKey struct {
		summary    string
		start, end int64
	}

	seenIDs := make(map[string]bool)
	// Keys of every kept event, and of the kept events without an id.
	seenKeys := make(map[naturalKey]bool)
	seenAnonymous := make(map[naturalKey]bool)
	merged := []calendar.Event{}

	for _, list := range lists {
		for _, e := range list {
			key := naturalKey{e.Summary, e.Start.UnixNano(), e.End.UnixNano()}
			if e.ID != "" {
				if seenIDs[e.ID] || seenAnonymous[key] {
					continue
				}
				seenIDs[e.ID] = true
			} else {
				if seenKeys[key] {
					continue
				}
				seenAnonymous[key] = true
			}
			seenKeys[key] = true
			merged = append(merged, e)
		}
	}
	calendar.SortByStart(merged)
	return merged
}
