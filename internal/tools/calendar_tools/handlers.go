package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/eventlog"
	"github.com/teemow/agenda/internal/scheduling"
)

// Result payloads.
type (
	eventsResult struct {
		Events []calendar.Event  `json:"events"`
		Source scheduling.Source `json:"source"`
		Errors []string          `json:"errors,omitempty"`
	}
	eventResult struct {
		Event calendar.Event `json:"event"`
	}
	deleteResult struct {
		Deleted bool           `json:"deleted"`
		EventID string         `json:"event_id"`
		Event   calendar.Event `json:"event"`
	}
	slotsResult struct {
		Date  string            `json:"date"`
		Slots []scheduling.Slot `json:"slots"`
	}
	calendarsResult struct {
		Calendars []calendar.CalendarInfo `json:"calendars"`
	}
	scheduleResult struct {
		Date    string   `json:"date"`
		Entries []string `json:"entries"`
		Message string   `json:"message,omitempty"`
	}
	searchResult struct {
		Query   string           `json:"query"`
		Matches []eventlog.Match `json:"matches"`
		Message string           `json:"message,omitempty"`
	}
)

// dispatch executes a decoded request. The switch is exhaustive over the
// request types newRequest can produce.
func (r *Registry) dispatch(ctx context.Context, req Request) (any, error) {
	loc := r.svc.Location()

	switch req := req.(type) {
	case ListEventsRequest:
		from, err := parseTime("time_min", req.TimeMin, loc)
		if err != nil {
			return nil, err
		}
		to, err := parseTime("time_max", req.TimeMax, loc)
		if err != nil {
			return nil, err
		}
		list, err := r.svc.ListEvents(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return eventsResult{Events: list.Events, Source: list.Source, Errors: list.Errors}, nil

	case CreateEventRequest:
		start, err := parseTime("start_time", req.StartTime, loc)
		if err != nil {
			return nil, err
		}
		end, err := parseTime("end_time", req.EndTime, loc)
		if err != nil {
			return nil, err
		}
		created, err := r.svc.CreateEvent(ctx, scheduling.NewEvent{
			Summary:     req.Summary,
			Description: req.Description,
			Start:       start,
			End:         end,
		})
		if err != nil {
			return nil, err
		}
		return eventResult{Event: created}, nil

	case UpdateEventRequest:
		changes := scheduling.EventChanges{Summary: req.Summary, Description: req.Description}
		if req.StartTime != nil {
			start, err := parseTime("start_time", *req.StartTime, loc)
			if err != nil {
				return nil, err
			}
			changes.Start = &start
		}
		if req.EndTime != nil {
			end, err := parseTime("end_time", *req.EndTime, loc)
			if err != nil {
				return nil, err
			}
			changes.End = &end
		}
		updated, err := r.svc.UpdateEvent(ctx, req.EventID, changes)
		if err != nil {
			return nil, err
		}
		return eventResult{Event: updated}, nil

	case DeleteEventRequest:
		deleted, err := r.svc.DeleteEvent(ctx, req.EventID)
		if err != nil {
			return nil, err
		}
		return deleteResult{Deleted: true, EventID: req.EventID, Event: deleted}, nil

	case CheckAvailabilityRequest:
		start, err := parseTime("start_time", req.StartTime, loc)
		if err != nil {
			return nil, err
		}
		end, err := parseTime("end_time", req.EndTime, loc)
		if err != nil {
			return nil, err
		}
		return r.svc.CheckAvailability(ctx, start, end)

	case FindAvailableSlotsRequest:
		startHour, endHour := scheduling.DefaultWorkdayStartHour, scheduling.DefaultWorkdayEndHour
		if req.StartHour != nil {
			startHour = *req.StartHour
		}
		if req.EndHour != nil {
			endHour = *req.EndHour
		}
		slots, err := r.svc.FindAvailableSlots(ctx, req.Date, startHour, endHour)
		if err != nil {
			return nil, err
		}
		return slotsResult{Date: req.Date, Slots: slots}, nil

	case GetEventDetailsRequest:
		event, err := r.svc.GetEvent(ctx, req.EventID)
		if err != nil {
			return nil, err
		}
		return eventResult{Event: event}, nil

	case ListCalendarsRequest:
		calendars, err := r.svc.ListCalendars(ctx)
		if err != nil {
			return nil, err
		}
		return calendarsResult{Calendars: calendars}, nil

	case GetDailyScheduleRequest:
		entries, err := r.svc.DailySchedule(req.Date)
		if err != nil {
			return nil, err
		}
		res := scheduleResult{Date: req.Date, Entries: make([]string, 0, len(entries))}
		for _, e := range entries {
			res.Entries = append(res.Entries, e.String())
		}
		if len(entries) == 0 {
			res.Message = fmt.Sprintf("No events recorded for %s.", req.Date)
		}
		return res, nil

	case SearchActivityLogsRequest:
		matches, err := r.svc.SearchActivity(req.Query)
		if err != nil {
			return nil, err
		}
		res := searchResult{Query: req.Query, Matches: matches}
		if len(matches) == 0 {
			res.Matches = []eventlog.Match{}
			res.Message = fmt.Sprintf("No entries matching %q were found in the logs.", req.Query)
		}
		return res, nil

	default:
		return nil, &ErrorDescriptor{Kind: KindUnknownOperation, Message: fmt.Sprintf("unsupported request %T", req)}
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime reads an ISO-8601 timestamp. Values without an offset are
// interpreted in loc.
func parseTime(field, value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidArguments(fmt.Sprintf("%s must be an ISO-8601 timestamp, got %q", field, value))
}
