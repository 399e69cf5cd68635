package calendar

import (
	"context"
	"time"
)

// DefaultCalendarID is the calendar used when none is configured.
const DefaultCalendarID = "primary"

// Gateway is the narrow interface to a calendar backend. All timestamps carry
// an explicit offset. Implementations return ErrEventNotFound for unknown ids.
type Gateway interface {
	// List returns events overlapping [timeMin, timeMax) ordered by start.
	List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)

	// Get returns a single event.
	Get(ctx context.Context, calendarID, eventID string) (Event, error)

	// Insert creates an event and returns it with its backend id.
	Insert(ctx context.Context, calendarID string, event Event) (Event, error)

	// Update replaces the modelled fields of an existing event.
	Update(ctx context.Context, calendarID, eventID string, event Event) (Event, error)

	// Delete removes an event.
	Delete(ctx context.Context, calendarID, eventID string) error

	// Calendars lists the calendars available to the caller.
	Calendars(ctx context.Context) ([]CalendarInfo, error)
}
