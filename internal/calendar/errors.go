package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable means no gateway could be constructed, usually
	// because no credentials resolved.
	ErrBackendUnavailable = errors.New("calendar backend unavailable")

	// ErrEventNotFound is returned for ids the backend does not know.
	ErrEventNotFound = errors.New("event not found")
)

// OperationError is a failed gateway round trip.
type OperationError struct {
	// Op is the gateway operation (list, get, insert, update, delete, calendars).
	Op string
	// Err is the underlying cause.
	Err error
	// Timeout is set when the per-call deadline expired.
	Timeout bool
	// Retryable is set when repeating the call may succeed.
	Retryable bool
}

func (e *OperationError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("calendar %s timed out: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
	}
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a gateway timeout.
func IsTimeout(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Timeout
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Retryable
}
