package calendar_tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/eventlog"
	"github.com/teemow/agenda/internal/scheduling"
)

var testNow = time.Date(2025, 4, 6, 20, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2025, 4, 7, hour, minute, 0, 0, time.UTC)
}

func newTestRegistry(t *testing.T, gw calendar.Gateway) (*Registry, *eventlog.Store) {
	t.Helper()
	store, err := eventlog.Open(t.TempDir(),
		eventlog.WithLocation(time.UTC),
		eventlog.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	svc, err := scheduling.NewService(scheduling.Config{
		Gateway:  gw,
		Log:      store,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)

	reg, err := NewRegistry(svc)
	require.NoError(t, err)
	return reg, store
}

func invoke(t *testing.T, reg *Registry, name, args string) agent.Result {
	t.Helper()
	return reg.Execute(context.Background(), agent.Invocation{
		ID:        "call-1",
		Name:      name,
		Arguments: json.RawMessage(args),
	})
}

func errorKindOf(t *testing.T, res agent.Result) ErrorKind {
	t.Helper()
	require.True(t, res.IsError, "expected an error result, got %s", res.Content)
	var payload struct {
		Error ErrorDescriptor `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &payload))
	return payload.Error.Kind
}

func TestNewRegistry_RequiresService(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)
}

func TestTools_FollowOperationsOrder(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	tools := reg.Tools()
	require.Len(t, tools, len(Operations))
	for i, op := range Operations {
		assert.Equal(t, string(op), tools[i].Name)
		assert.NotEmpty(t, tools[i].Description)
	}
}

func TestDecode(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	tests := []struct {
		name     string
		op       string
		args     string
		wantKind ErrorKind
		want     Request
	}{
		{
			name:     "unknown operation",
			op:       "book_flight",
			args:     `{}`,
			wantKind: KindUnknownOperation,
		},
		{
			name:     "missing required field",
			op:       "list_events",
			args:     `{"time_min":"2025-04-07T00:00:00Z"}`,
			wantKind: KindInvalidArguments,
		},
		{
			name:     "malformed json",
			op:       "delete_event",
			args:     `{"event_id":`,
			wantKind: KindInvalidArguments,
		},
		{
			name:     "wrong type",
			op:       "find_available_slots",
			args:     `{"date":"2025-04-07","start_hour":"nine"}`,
			wantKind: KindInvalidArguments,
		},
		{
			name:     "bad date layout",
			op:       "get_daily_schedule",
			args:     `{"date":"07/04/2025"}`,
			wantKind: KindInvalidArguments,
		},
		{
			name:     "fractional hour",
			op:       "find_available_slots",
			args:     `{"date":"2025-04-07","start_hour":9.5}`,
			wantKind: KindInvalidArguments,
		},
		{
			name: "null arguments for an operation without parameters",
			op:   "list_calendars",
			args: `null`,
			want: ListCalendarsRequest{},
		},
		{
			name: "valid request",
			op:   "delete_event",
			args: `{"event_id":"evt-1"}`,
			want: DeleteEventRequest{EventID: "evt-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Decode(tt.op, json.RawMessage(tt.args))
			if tt.wantKind != "" {
				var d *ErrorDescriptor
				require.ErrorAs(t, err, &d)
				assert.Equal(t, tt.wantKind, d.Kind)
				assert.NotEmpty(t, d.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_ReportsJSONFieldNames(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	_, err := reg.Decode("search_activity_logs", json.RawMessage(`{"query":""}`))
	var d *ErrorDescriptor
	require.ErrorAs(t, err, &d)
	assert.Contains(t, d.Message, "query is required")
}

func TestExecute_CreateAndList(t *testing.T) {
	reg, store := newTestRegistry(t, calendar.NewMemoryGateway())

	res := invoke(t, reg, "create_event",
		`{"summary":"Team Sync","start_time":"2025-04-07T10:00:00Z","end_time":"2025-04-07T11:00:00Z"}`)
	require.False(t, res.IsError, res.Content)

	var created struct {
		Event calendar.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &created))
	assert.NotEmpty(t, created.Event.ID)
	assert.Equal(t, "Team Sync", created.Event.Summary)

	res = invoke(t, reg, "list_events",
		`{"time_min":"2025-04-07T00:00:00","time_max":"2025-04-08T00:00:00"}`)
	require.False(t, res.IsError, res.Content)

	var listed struct {
		Events []calendar.Event  `json:"events"`
		Source scheduling.Source `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &listed))
	require.Len(t, listed.Events, 1)
	assert.Equal(t, scheduling.SourceRemote, listed.Source)
	assert.True(t, listed.Events[0].Start.Equal(at(10, 0)))

	entries, _, err := store.Entries("2025-04-07")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, eventlog.ActionCreate, entries[0].Action)
}

func TestExecute_UpdateAndDelete(t *testing.T) {
	gw := calendar.NewMemoryGateway()
	seeded := gw.Seed(calendar.DefaultCalendarID, calendar.Event{
		Summary: "Review", Start: at(13, 0), End: at(14, 0),
	})
	reg, _ := newTestRegistry(t, gw)
	id := seeded[0].ID

	res := invoke(t, reg, "update_event", `{"event_id":"`+id+`","summary":"Design review"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "Design review")

	res = invoke(t, reg, "delete_event", `{"event_id":"`+id+`"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, `"deleted":true`)

	res = invoke(t, reg, "get_event_details", `{"event_id":"`+id+`"}`)
	assert.Equal(t, KindNotFound, errorKindOf(t, res))
}

func TestExecute_CheckAvailability(t *testing.T) {
	gw := calendar.NewMemoryGateway()
	gw.Seed(calendar.DefaultCalendarID, calendar.Event{Summary: "Standup", Start: at(10, 0), End: at(11, 0)})
	reg, _ := newTestRegistry(t, gw)

	res := invoke(t, reg, "check_availability",
		`{"start_time":"2025-04-07T10:30:00Z","end_time":"2025-04-07T11:30:00Z"}`)
	require.False(t, res.IsError, res.Content)

	var got scheduling.Availability
	require.NoError(t, json.Unmarshal([]byte(res.Content), &got))
	assert.False(t, got.Free)
	assert.Len(t, got.Conflicts, 1)
}

func TestExecute_FindAvailableSlotsDefaults(t *testing.T) {
	gw := calendar.NewMemoryGateway()
	gw.Seed(calendar.DefaultCalendarID, calendar.Event{Summary: "Lunch", Start: at(12, 0), End: at(13, 0)})
	reg, _ := newTestRegistry(t, gw)

	res := invoke(t, reg, "find_available_slots", `{"date":"2025-04-07"}`)
	require.False(t, res.IsError, res.Content)

	var got struct {
		Date  string            `json:"date"`
		Slots []scheduling.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &got))
	assert.Equal(t, "2025-04-07", got.Date)
	require.Len(t, got.Slots, 2)
	assert.True(t, got.Slots[0].Start.Equal(at(9, 0)))
	assert.True(t, got.Slots[1].End.Equal(at(18, 0)))
}

func TestExecute_MalformedRawArguments(t *testing.T) {
	reg, _ := newTestRegistry(t, calendar.NewMemoryGateway())

	res := reg.Execute(context.Background(), agent.Invocation{
		ID:           "call-1",
		Name:         "list_events",
		RawArguments: `{"time_min": "2025-04-07T09:00`,
	})
	assert.Equal(t, KindInvalidArguments, errorKindOf(t, res))
	assert.Contains(t, res.Content, "not valid JSON")
}

func TestExecute_InvalidTimestamp(t *testing.T) {
	reg, _ := newTestRegistry(t, calendar.NewMemoryGateway())

	res := invoke(t, reg, "check_availability", `{"start_time":"tomorrow","end_time":"2025-04-07T11:00:00Z"}`)
	assert.Equal(t, KindInvalidArguments, errorKindOf(t, res))
	assert.Contains(t, res.Content, "start_time")
}

func TestExecute_WritesWithoutBackend(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	res := invoke(t, reg, "delete_event", `{"event_id":"evt-1"}`)
	assert.Equal(t, KindBackendUnavailable, errorKindOf(t, res))

	res = invoke(t, reg, "list_calendars", `{}`)
	assert.Equal(t, KindBackendUnavailable, errorKindOf(t, res))
}

func TestExecute_LogOperations(t *testing.T) {
	reg, store := newTestRegistry(t, nil)
	require.NoError(t, store.Append(context.Background(), eventlog.Entry{
		Action: eventlog.ActionCreate, Summary: "Day Off", Start: at(0, 0), End: at(23, 59),
	}))

	res := invoke(t, reg, "get_daily_schedule", `{"date":"2025-04-07"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "CREATE")
	assert.Contains(t, res.Content, "Day Off")

	res = invoke(t, reg, "get_daily_schedule", `{"date":"2025-04-08"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "No events recorded for 2025-04-08")

	res = invoke(t, reg, "search_activity_logs", `{"query":"day off"}`)
	require.False(t, res.IsError, res.Content)
	var found struct {
		Matches []eventlog.Match `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &found))
	require.Len(t, found.Matches, 1)
	assert.Equal(t, "2025-04-07", found.Matches[0].Date)

	res = invoke(t, reg, "search_activity_logs", `{"query":"birthday"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, `"matches":[]`)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"not found", calendar.ErrEventNotFound, KindNotFound},
		{"backend", calendar.ErrBackendUnavailable, KindBackendUnavailable},
		{"timeout", &calendar.OperationError{Op: "list", Timeout: true, Err: context.DeadlineExceeded}, KindTimeout},
		{"invalid", scheduling.ErrInvalidArgument, KindInvalidArguments},
		{"other", assert.AnError, KindOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err).Kind)
		})
	}
}
