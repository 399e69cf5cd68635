package calendar_tools

import (
	"encoding/json"
	"errors"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/scheduling"
)

// ErrorKind classifies a failed invocation for the model.
type ErrorKind string

const (
	KindInvalidArguments   ErrorKind = "invalid_arguments"
	KindUnknownOperation   ErrorKind = "unknown_operation"
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	KindOperationFailed    ErrorKind = "operation_failed"
	KindTimeout            ErrorKind = "timeout"
	KindNotFound           ErrorKind = "not_found"
)

// ErrorDescriptor is the result payload of a failed invocation.
type ErrorDescriptor struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (d *ErrorDescriptor) Error() string {
	return string(d.Kind) + ": " + d.Message
}

// JSON renders the descriptor as {"error": {...}}.
func (d *ErrorDescriptor) JSON() string {
	raw, err := json.Marshal(struct {
		Error *ErrorDescriptor `json:"error"`
	}{d})
	if err != nil {
		return `{"error":{"kind":"operation_failed","message":"failed to encode error"}}`
	}
	return string(raw)
}

func invalidArguments(message string) *ErrorDescriptor {
	return &ErrorDescriptor{Kind: KindInvalidArguments, Message: message}
}

// describe maps an engine or gateway error to a descriptor.
func describe(err error) *ErrorDescriptor {
	var d *ErrorDescriptor
	switch {
	case errors.As(err, &d):
		return d
	case errors.Is(err, scheduling.ErrInvalidArgument):
		return invalidArguments(err.Error())
	case calendar.IsTimeout(err):
		return &ErrorDescriptor{Kind: KindTimeout, Message: err.Error(), Retryable: true}
	case errors.Is(err, calendar.ErrEventNotFound):
		return &ErrorDescriptor{Kind: KindNotFound, Message: err.Error()}
	case errors.Is(err, calendar.ErrBackendUnavailable):
		return &ErrorDescriptor{
			Kind:      KindBackendUnavailable,
			Message:   "no calendar backend is reachable; only reads from the local activity log are possible",
			Retryable: calendar.IsRetryable(err),
		}
	default:
		return &ErrorDescriptor{Kind: KindOperationFailed, Message: err.Error(), Retryable: calendar.IsRetryable(err)}
	}
}
