package eventlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/calendar"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLocation(time.UTC)}, opts...)
	s, err := Open(t.TempDir(), opts...)
	require.NoError(t, err)
	return s
}

func writeSegment(t *testing.T, s *Store, date string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), SegmentName(date)), []byte(content), 0o644))
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestAppendAndReconstruct_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	start := mustTime(t, "2025-01-02T09:00:00+00:00")
	end := mustTime(t, "2025-01-02T10:00:00+00:00")

	err := s.Append(context.Background(), Entry{
		Action:  ActionCreate,
		Summary: "Team Sync",
		Start:   start,
		End:     end,
	})
	require.NoError(t, err)

	events, stats, err := s.Reconstruct("2025-01-02")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Team Sync", events[0].Summary)
	assert.True(t, start.Equal(events[0].Start))
	assert.True(t, end.Equal(events[0].End))
	assert.Equal(t, calendar.ProvenanceLog, events[0].Provenance)
	assert.Equal(t, Stats{Lines: 1, Events: 1}, stats)
}

func TestAppend_TargetDateFollowsStart(t *testing.T) {
	written := mustTime(t, "2025-01-01T18:00:00Z")
	s := newTestStore(t, WithClock(func() time.Time { return written }))

	require.NoError(t, s.Append(context.Background(), Entry{
		Action:  ActionCreate,
		Summary: "Dentist",
		Start:   mustTime(t, "2025-01-05T15:00:00+01:00"),
		End:     mustTime(t, "2025-01-05T16:00:00+01:00"),
	}))
	require.NoError(t, s.Append(context.Background(), Entry{Action: ActionDelete, EventID: "abc"}))

	dates, err := s.Segments()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-05"}, dates)

	entries, _, err := s.Entries("2025-01-01")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionDelete, entries[0].Action)
	assert.Equal(t, "ID: abc", entries[0].Details)
	assert.True(t, written.Equal(entries[0].Written))
}

func TestAppend_RejectsUnknownAction(t *testing.T) {
	s := newTestStore(t)
	err := s.Append(context.Background(), Entry{Action: "rename", Summary: "x"})
	assert.Error(t, err)

	dates, err := s.Segments()
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestAppend_SegmentKeepsRegularPermissions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(context.Background(), Entry{
		Action:  ActionCreate,
		Summary: "Team Sync",
		Start:   mustTime(t, "2025-01-02T09:00:00Z"),
		End:     mustTime(t, "2025-01-02T10:00:00Z"),
	}))

	// A file created the same way shows what the umask allows.
	reference := filepath.Join(t.TempDir(), "reference")
	f, err := os.OpenFile(reference, os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	want, err := os.Stat(reference)
	require.NoError(t, err)

	got, err := os.Stat(filepath.Join(s.Dir(), SegmentName("2025-01-02")))
	require.NoError(t, err)
	assert.Equal(t, want.Mode().Perm(), got.Mode().Perm())
	assert.FileExists(t, filepath.Join(s.Dir(), lockFileName))

	dates, err := s.Segments()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-02"}, dates)
}

func TestReconstruct_LegacyLines(t *testing.T) {
	var reasons []string
	s := newTestStore(t, WithMalformedObserver(func(segment, reason string) {
		reasons = append(reasons, reason)
	}))

	writeSegment(t, s, "2024-06-03",
		"[2024-06-01 12:00:00] CREATE: Summary: Team Sync, Start: 2024-06-03T14:00:00+00:00, End: 2024-06-03T15:00:00+00:00",
		"[2024-06-01 12:01:00] MOCK: Summary: Lunch with Sam",
		"[2024-06-01 12:02:00] UPDATE: ID: 42, Summary: Moved",
		"[2024-06-01 12:03:00] CREATE: Start: 2024-06-03T08:00:00",
		"[2024-06-01 12:04:00] CREATE: Summary: Broken, Start: tomorrow-ish",
		"garbage",
	)

	events, stats, err := s.Reconstruct("2024-06-03")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Team Sync", events[0].Summary)
	assert.Equal(t, time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC), events[0].Start.UTC())

	assert.Equal(t, "Lunch with Sam", events[1].Summary)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), events[1].Start)
	assert.Equal(t, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), events[1].End)

	assert.Equal(t, 6, stats.Lines)
	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 1, stats.Ignored)
	assert.Equal(t, 3, stats.Malformed)
	assert.ElementsMatch(t, []string{ReasonTimestamp, ReasonUnrecognised, ReasonNoSummary}, reasons)
}

func TestReconstruct_PartialWindow(t *testing.T) {
	var reasons []string
	s := newTestStore(t, WithMalformedObserver(func(segment, reason string) {
		reasons = append(reasons, reason)
	}))

	writeSegment(t, s, "2025-01-02",
		"[2025-01-01 08:00:00] CREATE: Summary: Review, Start: 2025-01-02T14:00:00",
		"[2025-01-01 08:01:00] CREATE: Summary: Wrap-up, End: 2025-01-02T17:00:00",
		"[2025-01-01 08:02:00] CREATE: Summary: Backwards, Start: 2025-01-02T16:00:00, End: 2025-01-02T15:00:00",
	)

	events, stats, err := s.Reconstruct("2025-01-02")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Review", events[0].Summary)
	assert.Equal(t, time.Date(2025, 1, 2, 14, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC), events[0].End)

	assert.Equal(t, "Wrap-up", events[1].Summary)
	assert.Equal(t, time.Date(2025, 1, 2, 16, 0, 0, 0, time.UTC), events[1].Start)
	assert.Equal(t, time.Date(2025, 1, 2, 17, 0, 0, 0, time.UTC), events[1].End)

	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, []string{ReasonWindow}, reasons)
}

func TestReconstruct_MissingSegment(t *testing.T) {
	s := newTestStore(t)
	events, stats, err := s.Reconstruct("2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, stats.Lines)
}

func TestReconstruct_UnsupportedVersion(t *testing.T) {
	s := newTestStore(t)
	writeSegment(t, s, "2025-01-02",
		`{"v":2,"ts":"2025-01-01T00:00:00Z","action":"create","date":"2025-01-02","summary":"Future"}`,
	)
	events, stats, err := s.Reconstruct("2025-01-02")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 1, stats.Malformed)
}

func TestReconstructRange_FiltersAndSorts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	add := func(summary, start, end string) {
		require.NoError(t, s.Append(ctx, Entry{
			Action: ActionCreate, Summary: summary,
			Start: mustTime(t, start), End: mustTime(t, end),
		}))
	}
	add("afternoon", "2025-03-10T14:00:00Z", "2025-03-10T15:00:00Z")
	add("morning", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	add("next day", "2025-03-11T09:00:00Z", "2025-03-11T10:00:00Z")
	add("before", "2025-03-10T06:00:00Z", "2025-03-10T07:00:00Z")

	events, stats, err := s.ReconstructRange(mustTime(t, "2025-03-10T08:00:00Z"), mustTime(t, "2025-03-10T18:00:00Z"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "morning", events[0].Summary)
	assert.Equal(t, "afternoon", events[1].Summary)
	assert.Equal(t, 2, stats.Events)
}

func TestAppend_ConcurrentWritersKeepLinesWhole(t *testing.T) {
	dir := t.TempDir()
	// Two stores over one directory stand in for two processes.
	a, err := Open(dir, WithLocation(time.UTC))
	require.NoError(t, err)
	b, err := Open(dir, WithLocation(time.UTC))
	require.NoError(t, err)

	start := mustTime(t, "2025-02-01T09:00:00Z")
	const perWriter = 50

	var wg sync.WaitGroup
	for w, store := range []*Store{a, b} {
		wg.Add(1)
		go func(w int, store *Store) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := store.Append(context.Background(), Entry{
					Action:  ActionCreate,
					Summary: fmt.Sprintf("writer-%d-%03d %s", w, i, strings.Repeat("x", 512)),
					Start:   start,
					End:     start.Add(time.Hour),
				})
				assert.NoError(t, err)
			}
		}(w, store)
	}
	wg.Wait()

	events, stats, err := a.Reconstruct("2025-02-01")
	require.NoError(t, err)
	assert.Len(t, events, 2*perWriter)
	assert.Zero(t, stats.Malformed)
}

func TestSegmentDate(t *testing.T) {
	d, ok := SegmentDate("event_log_2025-01-02.txt", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), d)

	for _, name := range []string{"event_log_2025-13-02.txt", "notes.txt", "event_log_2025-01-02.log"} {
		_, ok := SegmentDate(name, time.UTC)
		assert.False(t, ok, name)
	}
}
