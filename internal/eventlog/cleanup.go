package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/teemow/agenda/internal/logging"
)

// CleanupFailure is a segment that could not be removed.
type CleanupFailure struct {
	Segment string
	Err     error
}

// CleanupReport lists what a retention sweep did.
type CleanupReport struct {
	Scanned  int
	Removed  []string
	Failures []CleanupFailure
}

// Err joins the individual failures, or returns nil.
func (r CleanupReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Segment, f.Err))
	}
	return joinErrors(errs)
}

// Cleanup removes every segment whose target date is more than the retention
// window of whole days before now. A segment that fails to delete is recorded
// and the sweep continues. Running it twice in a row removes nothing the
// second time. The sweep holds the same lock as Append; if the lock cannot
// be taken in time nothing is removed and the failure is reported.
func (s *Store) Cleanup(now time.Time) CleanupReport {
	var report CleanupReport

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()
	unlock, err := s.lock(ctx)
	if err != nil {
		report.Failures = append(report.Failures, CleanupFailure{Segment: lockFileName, Err: err})
		s.logger.Warn("failed to lock event log for cleanup", logging.Err(err))
		return report
	}
	defer unlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		report.Failures = append(report.Failures, CleanupFailure{Segment: s.dir, Err: err})
		s.logger.Warn("failed to scan event log directory", logging.Err(err))
		return report
	}

	now = now.In(s.loc)
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		date, ok := SegmentDate(de.Name(), s.loc)
		if !ok {
			continue
		}
		report.Scanned++

		if ageInDays(now, date) <= s.retention {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			report.Failures = append(report.Failures, CleanupFailure{Segment: de.Name(), Err: err})
			s.logger.Warn("failed to remove expired segment", logging.Segment(de.Name()), logging.Err(err))
			continue
		}
		report.Removed = append(report.Removed, de.Name())
	}

	if len(report.Removed) > 0 {
		s.logger.Info("removed expired log segments",
			slog.Int("removed", len(report.Removed)),
			slog.Int("retention_days", s.retention))
	}
	return report
}

// ageInDays is the number of calendar days from date to now, each read in
// its own zone. Daylight saving shifts do not move the boundary.
func ageInDays(now, date time.Time) int {
	return int(civilDay(now).Sub(civilDay(date)).Hours() / 24)
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
