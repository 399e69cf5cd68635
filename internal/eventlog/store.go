package eventlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/flock"

	"github.com/teemow/agenda/internal/logging"
)

const (
	segmentPrefix = "event_log_"
	segmentSuffix = ".txt"

	// DefaultRetentionDays is how many whole days a segment outlives its target date.
	DefaultRetentionDays = 7

	// lockFileName is the advisory lock shared by every writer and sweeper
	// of the directory. Its name never parses as a segment.
	lockFileName = ".event_log.lock"

	lockRetryDelay     = 10 * time.Millisecond
	defaultLockTimeout = 5 * time.Second
)

// MalformedObserver is told about every line that cannot be used.
type MalformedObserver func(segment, reason string)

// Store is a directory of per-date log segments. It is safe for concurrent
// use, and appends are serialized across processes with an advisory lock.
type Store struct {
	dir       string
	loc       *time.Location
	retention int
	now       func() time.Time
	logger    *slog.Logger
	observer  MalformedObserver
	validate  *validator.Validate

	// lockTimeout bounds how long Cleanup waits for the directory lock.
	lockTimeout time.Duration

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone used for target dates and offset-less timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRetentionDays overrides DefaultRetentionDays.
func WithRetentionDays(days int) Option {
	return func(s *Store) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.WithComponent(logger, "eventlog")
	}
}

// WithMalformedObserver registers a callback for rejected lines.
func WithMalformedObserver(observer MalformedObserver) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

// Open prepares dir (creating it if needed) and returns a store over it.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("event log directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}

	s := &Store{
		dir:       dir,
		loc:       time.Local,
		retention: DefaultRetentionDays,
		now:       time.Now,
		logger:    logging.WithComponent(nil, "eventlog"),
		validate:  validator.New(),

		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the segment directory.
func (s *Store) Dir() string {
	return s.dir
}

// Location returns the zone used for target dates.
func (s *Store) Location() *time.Location {
	return s.loc
}

// DateKey formats t as a target date in the store's zone.
func (s *Store) DateKey(t time.Time) string {
	return t.In(s.loc).Format(DateLayout)
}

// SegmentName returns the file name for a target date.
func SegmentName(date string) string {
	return segmentPrefix + date + segmentSuffix
}

// SegmentDate parses a segment file name back into its target date.
func SegmentDate(name string, loc *time.Location) (time.Time, bool) {
	if !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix)
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Append writes e to the segment of its target date as a single line.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.Written.IsZero() {
		e.Written = s.now()
	}
	if e.Date == "" {
		switch {
		case !e.Start.IsZero():
			// The event's own offset decides its calendar day.
			e.Date = e.Start.Format(DateLayout)
		default:
			e.Date = s.DateKey(e.Written)
		}
	}
	if e.Details == "" {
		e.Details = e.describe()
	}
	if err := s.validate.Struct(e); err != nil {
		return fmt.Errorf("invalid log entry: %w", err)
	}

	line, err := encode(e)
	if err != nil {
		return fmt.Errorf("failed to encode log entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to lock segment %s: %w", SegmentName(e.Date), err)
	}
	defer unlock()

	path := filepath.Join(s.dir, SegmentName(e.Date))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open segment: %w", err)
	}
	// One write per record keeps lines whole under O_APPEND.
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to segment: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close segment: %w", err)
	}

	s.logger.Debug("appended log entry",
		logging.Segment(SegmentName(e.Date)),
		slog.String("action", string(e.Action)))
	return nil
}

// lock takes the directory's advisory lock. The caller must hold s.mu.
func (s *Store) lock(ctx context.Context) (func(), error) {
	fl := flock.New(filepath.Join(s.dir, lockFileName))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, errors.New("lock is held elsewhere")
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("failed to release event log lock", logging.Err(err))
		}
	}, nil
}

// Stats summarises a read over one or more segments.
type Stats struct {
	Lines     int
	Events    int
	Malformed int
	Ignored   int
}

func (st *Stats) add(other Stats) {
	st.Lines += other.Lines
	st.Events += other.Events
	st.Malformed += other.Malformed
	st.Ignored += other.Ignored
}

// scan calls fn for every parseable line of the segment for date. A missing
// segment is not an error.
func (s *Store) scan(date string, fn func(Entry)) (Stats, error) {
	var stats Stats
	name := SegmentName(date)

	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("failed to open segment %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		entry, err := parseLine(line, date, s.loc)
		if err != nil {
			stats.Malformed++
			s.reportMalformed(name, err)
			continue
		}
		fn(entry)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read segment %s: %w", name, err)
	}
	return stats, nil
}

func (s *Store) reportMalformed(segment string, err error) {
	reason := ReasonUnparsable
	var pe *parseError
	if errors.As(err, &pe) {
		reason = pe.reason
	}
	s.logger.Debug("skipping malformed log line", logging.Segment(segment), slog.String("reason", reason))
	if s.observer != nil {
		s.observer(segment, reason)
	}
}

// Entries returns every readable entry of the segment for date, in file order.
func (s *Store) Entries(date string) ([]Entry, Stats, error) {
	var entries []Entry
	stats, err := s.scan(date, func(e Entry) {
		entries = append(entries, e)
	})
	return entries, stats, err
}

// Segments returns the target dates that have a segment, ascending.
func (s *Store) Segments() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log directory: %w", err)
	}

	var dates []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if t, ok := SegmentDate(de.Name(), s.loc); ok {
			dates = append(dates, t.Format(DateLayout))
		}
	}
	sort.Strings(dates)
	return dates, nil
}
