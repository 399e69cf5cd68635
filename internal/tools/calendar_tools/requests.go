package calendar_tools

// Operation names one capability.
type Operation string

const (
	OpListEvents         Operation = "list_events"
	OpCreateEvent        Operation = "create_event"
	OpUpdateEvent        Operation = "update_event"
	OpDeleteEvent        Operation = "delete_event"
	OpCheckAvailability  Operation = "check_availability"
	OpFindAvailableSlots Operation = "find_available_slots"
	OpGetEventDetails    Operation = "get_event_details"
	OpListCalendars      Operation = "list_calendars"
	OpGetDailySchedule   Operation = "get_daily_schedule"
	OpSearchActivityLogs Operation = "search_activity_logs"
)

// Operations lists every capability in the order it is offered to the model.
var Operations = []Operation{
	OpListEvents,
	OpCreateEvent,
	OpUpdateEvent,
	OpDeleteEvent,
	OpCheckAvailability,
	OpFindAvailableSlots,
	OpGetEventDetails,
	OpListCalendars,
	OpGetDailySchedule,
	OpSearchActivityLogs,
}

// Request is a decoded invocation. The concrete type determines the
// operation; the set of implementations is closed.
type Request interface {
	Operation() Operation
}

// ListEventsRequest lists events in [TimeMin, TimeMax).
type ListEventsRequest struct {
	TimeMin string `json:"time_min" validate:"required"`
	TimeMax string `json:"time_max" validate:"required"`
}

// CreateEventRequest creates an event.
type CreateEventRequest struct {
	Summary     string `json:"summary" validate:"required,max=1024"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	Description string `json:"description" validate:"max=8192"`
}

// UpdateEventRequest changes the given fields of an event.
type UpdateEventRequest struct {
	EventID     string  `json:"event_id" validate:"required"`
	Summary     *string `json:"summary" validate:"omitempty,max=1024"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Description *string `json:"description" validate:"omitempty,max=8192"`
}

// DeleteEventRequest deletes an event.
type DeleteEventRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

// CheckAvailabilityRequest asks whether [StartTime, EndTime) is free.
type CheckAvailabilityRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// FindAvailableSlotsRequest asks for free slots on Date between the hours.
type FindAvailableSlotsRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartHour *int   `json:"start_hour" validate:"omitempty,gte=0,lte=23"`
	EndHour   *int   `json:"end_hour" validate:"omitempty,gte=1,lte=24"`
}

// GetEventDetailsRequest fetches one event.
type GetEventDetailsRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

// ListCalendarsRequest lists calendars.
type ListCalendarsRequest struct{}

// GetDailyScheduleRequest returns the activity recorded for Date.
type GetDailyScheduleRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SearchActivityLogsRequest searches all recorded activity.
type SearchActivityLogsRequest struct {
	Query string `json:"query" validate:"required,max=256"`
}

func (ListEventsRequest) Operation() Operation         { return OpListEvents }
func (CreateEventRequest) Operation() Operation        { return OpCreateEvent }
func (UpdateEventRequest) Operation() Operation        { return OpUpdateEvent }
func (DeleteEventRequest) Operation() Operation        { return OpDeleteEvent }
func (CheckAvailabilityRequest) Operation() Operation  { return OpCheckAvailability }
func (FindAvailableSlotsRequest) Operation() Operation { return OpFindAvailableSlots }
func (GetEventDetailsRequest) Operation() Operation    { return OpGetEventDetails }
func (ListCalendarsRequest) Operation() Operation      { return OpListCalendars }
func (GetDailyScheduleRequest) Operation() Operation   { return OpGetDailySchedule }
func (SearchActivityLogsRequest) Operation() Operation { return OpSearchActivityLogs }

// newRequest returns a pointer to an empty request for op.
func newRequest(op Operation) (Request, bool) {
	switch op {
	case OpListEvents:
		return &ListEventsRequest{}, true
	case OpCreateEvent:
		return &CreateEventRequest{}, true
	case OpUpdateEvent:
		return &UpdateEventRequest{}, true
	case OpDeleteEvent:
		return &DeleteEventRequest{}, true
	case OpCheckAvailability:
		return &CheckAvailabilityRequest{}, true
	case OpFindAvailableSlots:
		return &FindAvailableSlotsRequest{}, true
	case OpGetEventDetails:
		return &GetEventDetailsRequest{}, true
	case OpListCalendars:
		return &ListCalendarsRequest{}, true
	case OpGetDailySchedule:
		return &GetDailyScheduleRequest{}, true
	case OpSearchActivityLogs:
		return &SearchActivityLogsRequest{}, true
	default:
		return nil, false
	}
}
