package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

// GoogleGateway implements Gateway on top of the Google Calendar API.
type GoogleGateway struct {
	svc *gcal.Service
	loc *time.Location
}

// NewGoogleGateway creates a gateway authenticated by ts. All-day events are
// interpreted in loc (nil means time.Local).
func NewGoogleGateway(ctx context.Context, ts oauth2.TokenSource, loc *time.Location) (*GoogleGateway, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	client := oauth2.NewClient(ctx, ts)
	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}

	return NewGoogleGatewayWithOptions(ctx, loc, option.WithHTTPClient(client))
}

// NewGoogleGatewayWithOptions creates a gateway from raw client options.
func NewGoogleGatewayWithOptions(ctx context.Context, loc *time.Location, opts ...option.ClientOption) (*GoogleGateway, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &GoogleGateway{svc: svc, loc: loc}, nil
}

// List returns single (expanded) events in the window ordered by start time.
func (g *GoogleGateway) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	call := g.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	var events []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			events = append(events, g.toEvent(item))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", mapGoogleError(err))
	}
	return events, nil
}

// Get retrieves a specific event by ID.
func (g *GoogleGateway) Get(ctx context.Context, calendarID, eventID string) (Event, error) {
	item, err := g.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to get event: %w", mapGoogleError(err))
	}
	return g.toEvent(item), nil
}

// Insert creates a new event.
func (g *GoogleGateway) Insert(ctx context.Context, calendarID string, event Event) (Event, error) {
	created, err := g.svc.Events.Insert(calendarID, fromEvent(event)).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to create event: %w", mapGoogleError(err))
	}
	return g.toEvent(created), nil
}

// Update patches summary, description, start and end of an existing event.
// Fields the engine does not model (attendees, reminders, ...) are left alone.
func (g *GoogleGateway) Update(ctx context.Context, calendarID, eventID string, event Event) (Event, error) {
	updated, err := g.svc.Events.Patch(calendarID, eventID, fromEvent(event)).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", mapGoogleError(err))
	}
	return g.toEvent(updated), nil
}

// Delete deletes an event.
func (g *GoogleGateway) Delete(ctx context.Context, calendarID, eventID string) error {
	if err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", mapGoogleError(err))
	}
	return nil
}

// Calendars lists all calendars accessible to the user.
func (g *GoogleGateway) Calendars(ctx context.Context) ([]CalendarInfo, error) {
	list, err := g.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", mapGoogleError(err))
	}

	calendars := make([]CalendarInfo, 0, len(list.Items))
	for _, entry := range list.Items {
		calendars = append(calendars, CalendarInfo{
			ID:         entry.Id,
			Summary:    entry.Summary,
			TimeZone:   entry.TimeZone,
			Primary:    entry.Primary,
			AccessRole: entry.AccessRole,
		})
	}
	return calendars, nil
}

func (g *GoogleGateway) toEvent(item *gcal.Event) Event {
	if item == nil {
		return Event{Provenance: ProvenanceRemote}
	}
	return Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Start:       g.parseEventTime(item.Start),
		End:         g.parseEventTime(item.End),
		Provenance:  ProvenanceRemote,
	}
}

func (g *GoogleGateway) parseEventTime(edt *gcal.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t
		}
	}
	if edt.Date != "" {
		if t, err := time.ParseInLocation(dateLayout, edt.Date, g.loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

func fromEvent(event Event) *gcal.Event {
	out := &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
	}
	if !event.Start.IsZero() {
		out.Start = &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339)}
	}
	if !event.End.IsZero() {
		out.End = &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339)}
	}
	return out
}

// mapGoogleError converts 404/410 API responses into ErrEventNotFound while
// keeping the original error in the chain.
func mapGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%w: %v", ErrEventNotFound, err)
	}
	return err
}

// retryableStatus reports whether an API error status is worth retrying.
func retryableStatus(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}
