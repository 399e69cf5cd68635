package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/eventlog"
)

func ptr[T any](v T) *T { return &v }

func TestCreateEvent_LogsAndInserts(t *testing.T) {
	gw := calendar.NewMemoryGateway()
	svc, store := newTestService(t, gw)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, NewEvent{Summary: "Team Sync", Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, calendar.ProvenanceRemote, created.Provenance)

	stored, err := gw.Get(ctx, calendar.DefaultCalendarID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team Sync", stored.Summary)

	entries, _, err := store.Entries("2025-04-07")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, eventlog.ActionCreate, entries[0].Action)
	assert.Equal(t, "Team Sync", entries[0].Summary)
}

func TestCreateEvent_LoggedEvenWhenInsertFails(t *testing.T) {
	gw := &rejectingGateway{MemoryGateway: calendar.NewMemoryGateway(), err: errors.New("quota exceeded")}
	svc, store := newTestService(t, gw)

	_, err := svc.CreateEvent(context.Background(), NewEvent{Summary: "Team Sync", Start: at(10, 0), End: at(11, 0)})
	require.Error(t, err)

	entries, _, err := store.Entries("2025-04-07")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateEvent_OfflineIsServedFromLog(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, NewEvent{Summary: "Focus", Start: at(13, 0), End: at(15, 0)})
	require.NoError(t, err)
	assert.Equal(t, calendar.ProvenanceLog, created.Provenance)

	avail, err := svc.CheckAvailability(ctx, at(14, 0), at(14, 30))
	require.NoError(t, err)
	assert.False(t, avail.Free)
}

func TestCreateEvent_Validation(t *testing.T) {
	svc, _ := newTestService(t, calendar.NewMemoryGateway())
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, NewEvent{Start: at(10, 0), End: at(11, 0)})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.CreateEvent(ctx, NewEvent{Summary: "x", Start: at(11, 0), End: at(10, 0)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdateEvent_KeepsAbsentFields(t *testing.T) {
	gw := calendar.NewMemoryGateway()
	seeded := gw.Seed(calendar.DefaultCalendarID, calendar.Event{
		Summary: "Team Sync", Description: "weekly", Start: at(10, 0), End: at(11, 0),
	})
	svc, store := newTestService(t, gw)
	ctx := context.Background()

	updated, err := svc.UpdateEvent(ctx, seeded[0].ID, EventChanges{
		Start: ptr(at(15, 0)),
		End:   ptr(at(16, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Team Sync", updated.Summary)
	assert.Equal(t, "weekly", updated.Description)
	assert.Equal(t, at(15, 0), updated.Start)

	entries, _, err := store.Entries("2025-04-07")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, eventlog.ActionUpdate, entries[0].Action)
	assert.Equal(t, seeded[0].ID, entries[0].EventID)
}

func TestUpdateEvent_Errors(t *testing.T) {
	ctx := context.Background()

	offline, _ := newTestService(t, nil)
	_, err := offline.UpdateEvent(ctx, "abc", EventChanges{Summary: ptr("x")})
	assert.ErrorIs(t, err, calendar.ErrBackendUnavailable)

	svc, _ := newTestService(t, calendar.NewMemoryGateway())
	_, err = svc.UpdateEvent(ctx, "missing", EventChanges{Summary: ptr("x")})
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	_, err = svc.UpdateEvent(ctx, "abc", EventChanges{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.UpdateEvent(ctx, "", EventChanges{Summary: ptr("x")})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteEvent_LogsUnderEventDate(t *testing.T) {
	gw := calendar.NewMemoryGateway()
	seeded := gw.Seed(calendar.DefaultCalendarID, ev("Dentist", at(10, 0), at(11, 0)))
	svc, store := newTestService(t, gw)
	ctx := context.Background()

	deleted, err := svc.DeleteEvent(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", deleted.Summary)

	entries, _, err := store.Entries("2025-04-07")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, eventlog.ActionDelete, entries[0].Action)

	_, err = svc.DeleteEvent(ctx, seeded[0].ID)
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)
}

func TestDeleteEvent_FallsBackToToday(t *testing.T) {
	gw := &blindGateway{MemoryGateway: calendar.NewMemoryGateway()}
	seeded := gw.Seed(calendar.DefaultCalendarID, ev("Dentist", at(10, 0), at(11, 0)))
	svc, store := newTestService(t, gw)

	_, err := svc.DeleteEvent(context.Background(), seeded[0].ID)
	require.NoError(t, err)

	entries, _, err := store.Entries(fixedNow.Format(eventlog.DateLayout))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, seeded[0].ID, entries[0].EventID)
}

func TestSupplementaryOperations(t *testing.T) {
	gw := calendar.NewMemoryGateway()
	svc, _ := newTestService(t, gw)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, NewEvent{Summary: "Team Sync", Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)

	got, err := svc.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	cals, err := svc.ListCalendars(ctx)
	require.NoError(t, err)
	assert.Len(t, cals, 1)

	schedule, err := svc.DailySchedule("2025-04-07")
	require.NoError(t, err)
	assert.Len(t, schedule, 1)

	_, err = svc.DailySchedule("tomorrow")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	matches, err := svc.SearchActivity("team")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	offline, _ := newTestService(t, nil)
	_, err = offline.ListCalendars(ctx)
	assert.ErrorIs(t, err, calendar.ErrBackendUnavailable)
}

// rejectingGateway fails inserts.
type rejectingGateway struct {
	*calendar.MemoryGateway
	err error
}

func (r *rejectingGateway) Insert(context.Context, string, calendar.Event) (calendar.Event, error) {
	return calendar.Event{}, r.err
}

// blindGateway cannot fetch single events.
type blindGateway struct {
	*calendar.MemoryGateway
}

func (b *blindGateway) Get(context.Context, string, string) (calendar.Event, error) {
	return calendar.Event{}, errors.New("get unsupported")
}
