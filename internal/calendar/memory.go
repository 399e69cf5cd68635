package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryGateway is an in-process Gateway used by tests and the "memory"
// backend. It is safe for concurrent use.
type MemoryGateway struct {
	mu        sync.RWMutex
	events    map[string]map[string]Event
	calendars []CalendarInfo
}

// NewMemoryGateway returns an empty gateway exposing a single primary calendar.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		events: make(map[string]map[string]Event),
		calendars: []CalendarInfo{{
			ID:         DefaultCalendarID,
			Summary:    "Primary",
			Primary:    true,
			AccessRole: "owner",
		}},
	}
}

// Seed stores events on calendarID, assigning ids to those without one.
func (m *MemoryGateway) Seed(calendarID string, events ...Event) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, m.store(calendarID, e))
	}
	return out
}

// Reset drops every stored event.
func (m *MemoryGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string]map[string]Event)
}

func (m *MemoryGateway) store(calendarID string, e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Provenance = ProvenanceRemote
	cal, ok := m.events[calendarID]
	if !ok {
		cal = make(map[string]Event)
		m.events[calendarID] = cal
	}
	cal[e.ID] = e
	return e
}

// List implements Gateway.
func (m *MemoryGateway) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.events[calendarID] {
		if e.Overlaps(timeMin, timeMax) {
			out = append(out, e)
		}
	}
	SortByStart(out)
	return out, nil
}

// Get implements Gateway.
func (m *MemoryGateway) Get(ctx context.Context, calendarID, eventID string) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[calendarID][eventID]
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	return e, nil
}

// Insert implements Gateway. The id on event is ignored.
func (m *MemoryGateway) Insert(ctx context.Context, calendarID string, event Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	event.ID = ""
	return m.store(calendarID, event), nil
}

// Update implements Gateway.
func (m *MemoryGateway) Update(ctx context.Context, calendarID, eventID string, event Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[calendarID][eventID]; !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	event.ID = eventID
	return m.store(calendarID, event), nil
}

// Delete implements Gateway.
func (m *MemoryGateway) Delete(ctx context.Context, calendarID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[calendarID][eventID]; !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	delete(m.events[calendarID], eventID)
	return nil
}

// Calendars implements Gateway.
func (m *MemoryGateway) Calendars(ctx context.Context) ([]CalendarInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CalendarInfo(nil), m.calendars...), nil
}
