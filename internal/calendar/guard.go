package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

// Default guard settings.
const (
	DefaultTimeout                = 10 * time.Second
	DefaultMaxConsecutiveFailures = 5
	DefaultOpenTimeout            = 30 * time.Second
)

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Backend labels metrics and spans (google, memory).
	Backend string
	// Timeout bounds every gateway call.
	Timeout time.Duration
	// MaxConsecutiveFailures trips the breaker. Zero disables tripping.
	MaxConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Guard decorates a Gateway with a per-call deadline, a circuit breaker,
// metrics and tracing. Every failure it returns is an *OperationError.
type Guard struct {
	next    Gateway
	cfg     GuardConfig
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ Gateway = (*Guard)(nil)

// NewGuard wraps next.
func NewGuard(next Gateway, cfg GuardConfig) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.Backend == "" {
		cfg.Backend = instrumentation.BackendGoogle
	}
	logger := logging.WithComponent(cfg.Logger, "calendar")

	maxFailures := cfg.MaxConsecutiveFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "calendar-" + cfg.Backend,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		// A missing event is a valid answer from a healthy backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrEventNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Guard{next: next, cfg: cfg, breaker: breaker, logger: logger}
}

// Unwrap returns the decorated gateway.
func (g *Guard) Unwrap() Gateway {
	return g.next
}

func (g *Guard) call(ctx context.Context, op string, fn func(ctx context.Context) (interface{}, error), attrs ...attribute.KeyValue) (interface{}, error) {
	ctx, span := instrumentation.StartGatewaySpan(ctx, g.cfg.Backend, op, attrs...)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(callCtx)
	})
	duration := time.Since(start)

	if err == nil {
		g.cfg.Metrics.RecordGatewayOperation(ctx, g.cfg.Backend, op, instrumentation.StatusSuccess, duration)
		instrumentation.SetSpanSuccess(span)
		return result, nil
	}

	opErr := g.classify(callCtx, op, err)
	status := instrumentation.StatusError
	if opErr.Timeout {
		status = instrumentation.StatusTimeout
	}
	g.cfg.Metrics.RecordGatewayOperation(ctx, g.cfg.Backend, op, status, duration)
	instrumentation.SetSpanError(span, opErr)

	if !errors.Is(err, ErrEventNotFound) {
		g.logger.Warn("calendar operation failed",
			logging.Operation(op),
			slog.Duration(logging.KeyDuration, duration),
			slog.Bool("timeout", opErr.Timeout),
			slog.Bool("retryable", opErr.Retryable),
			logging.Err(err))
	}
	return nil, opErr
}

func (g *Guard) classify(callCtx context.Context, op string, err error) *OperationError {
	opErr := &OperationError{Op: op, Err: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		opErr.Timeout = true
		opErr.Retryable = true
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		opErr.Err = errors.Join(ErrBackendUnavailable, err)
		opErr.Retryable = true
	case retryableStatus(err):
		opErr.Retryable = true
	}
	return opErr
}

// List implements Gateway.
func (g *Guard) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	res, err := g.call(ctx, instrumentation.OperationList, func(ctx context.Context) (interface{}, error) {
		return g.next.List(ctx, calendarID, timeMin, timeMax)
	}, attribute.String(instrumentation.SpanAttrCalendarID, calendarID))
	if err != nil {
		return nil, err
	}
	events, _ := res.([]Event)
	return events, nil
}

// Get implements Gateway.
func (g *Guard) Get(ctx context.Context, calendarID, eventID string) (Event, error) {
	res, err := g.call(ctx, instrumentation.OperationGet, func(ctx context.Context) (interface{}, error) {
		return g.next.Get(ctx, calendarID, eventID)
	}, attribute.String(instrumentation.SpanAttrCalendarID, calendarID),
		attribute.String(instrumentation.SpanAttrEventID, eventID))
	if err != nil {
		return Event{}, err
	}
	return res.(Event), nil
}

// Insert implements Gateway.
func (g *Guard) Insert(ctx context.Context, calendarID string, event Event) (Event, error) {
	res, err := g.call(ctx, instrumentation.OperationInsert, func(ctx context.Context) (interface{}, error) {
		return g.next.Insert(ctx, calendarID, event)
	}, attribute.String(instrumentation.SpanAttrCalendarID, calendarID))
	if err != nil {
		return Event{}, err
	}
	return res.(Event), nil
}

// Update implements Gateway.
func (g *Guard) Update(ctx context.Context, calendarID, eventID string, event Event) (Event, error) {
	res, err := g.call(ctx, instrumentation.OperationUpdate, func(ctx context.Context) (interface{}, error) {
		return g.next.Update(ctx, calendarID, eventID, event)
	}, attribute.String(instrumentation.SpanAttrCalendarID, calendarID),
		attribute.String(instrumentation.SpanAttrEventID, eventID))
	if err != nil {
		return Event{}, err
	}
	return res.(Event), nil
}

// Delete implements Gateway.
func (g *Guard) Delete(ctx context.Context, calendarID, eventID string) error {
	_, err := g.call(ctx, instrumentation.OperationDelete, func(ctx context.Context) (interface{}, error) {
		return nil, g.next.Delete(ctx, calendarID, eventID)
	}, attribute.String(instrumentation.SpanAttrCalendarID, calendarID),
		attribute.String(instrumentation.SpanAttrEventID, eventID))
	return err
}

// Calendars implements Gateway.
func (g *Guard) Calendars(ctx context.Context) ([]CalendarInfo, error) {
	res, err := g.call(ctx, instrumentation.OperationCalendars, func(ctx context.Context) (interface{}, error) {
		return g.next.Calendars(ctx)
	})
	if err != nil {
		return nil, err
	}
	calendars, _ := res.([]CalendarInfo)
	return calendars, nil
}
