package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

// DefaultMaxRoundTrips bounds the model/operation cycles of one turn.
const DefaultMaxRoundTrips = 8

// DefaultHistoryWindow is how many non-system messages the model sees.
const DefaultHistoryWindow = 40

var (
	// ErrTurnBudgetExceeded means the model kept requesting operations after
	// the round-trip budget was spent.
	ErrTurnBudgetExceeded = errors.New("turn budget exceeded")

	// ErrModelUnavailable means the model call failed.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Replies used when a turn cannot finish normally.
const (
	budgetExceededReply = "I'm sorry, I couldn't finish that request; it needed more calendar lookups than I'm allowed in one go. Could you narrow it down or ask again in smaller steps?"
	modelFailureReply   = "I'm sorry, I'm having trouble thinking right now. Please try again in a moment."
	emptyReply          = "I'm not sure how to help with that. Could you rephrase?"
)

// State is a position of the turn state machine.
type State string

const (
	StateAwaitingModel      State = "awaiting_model"
	StateAwaitingOperations State = "awaiting_operations"
	StateTerminal           State = "terminal"
)

// TurnResult describes a finished turn.
type TurnResult struct {
	// Reply is the text of the final assistant message.
	Reply string
	// Messages are the messages this turn appended, starting with the user
	// message. The system message is never included.
	Messages []Message
	// State is always StateTerminal for a returned result.
	State      State
	RoundTrips int
	// Failure is set when the reply is a degraded answer. It wraps
	// ErrTurnBudgetExceeded or ErrModelUnavailable.
	Failure error
}

// Config configures an Orchestrator.
type Config struct {
	Model        Model
	Capabilities Capabilities
	// SystemPrompt renders the standing instructions at the start of a turn.
	SystemPrompt func(now time.Time) string
	// MaxRoundTrips bounds model/operation cycles per turn.
	MaxRoundTrips int
	// HistoryWindow limits the messages sent to the model. Negative means
	// unlimited.
	HistoryWindow int
	// VoiceFriendly rewrites "9:00 AM" as "9 AM" in final replies.
	VoiceFriendly bool
	ModelName     string

	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Orchestrator runs turns. It holds no per-conversation state and is safe
// for concurrent use; callers serialize turns of the same conversation.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and returns an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Capabilities == nil {
		return nil, errors.New("capabilities are required")
	}
	if cfg.MaxRoundTrips <= 0 {
		cfg.MaxRoundTrips = DefaultMaxRoundTrips
	}
	if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.SystemPrompt == nil {
		cfg.SystemPrompt = func(now time.Time) string { return SystemPrompt(now) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{cfg: cfg, logger: logging.WithComponent(cfg.Logger, "agent")}, nil
}

// MaxRoundTrips returns the configured budget.
func (o *Orchestrator) MaxRoundTrips() int {
	return o.cfg.MaxRoundTrips
}

// RunTurn answers userText given the prior history of the conversation.
// Model failures and budget exhaustion still produce a TurnResult with a
// degraded reply; an error is returned only for unusable input.
func (o *Orchestrator) RunTurn(ctx context.Context, history []Message, userText string) (TurnResult, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return TurnResult{}, errors.New("user message cannot be empty")
	}

	conv, err := NewConversation(o.cfg.SystemPrompt(o.cfg.Now()), history...)
	if err != nil {
		return TurnResult{}, fmt.Errorf("invalid history: %w", err)
	}
	turnStart := conv.Len()
	_ = conv.Append(UserMessage(userText))

	session := SessionFromContext(ctx)
	ctx, span := instrumentation.StartTurnSpan(ctx, logging.AnonymizeSession(session))
	defer span.End()
	logger := o.logger
	if session != "" {
		logger = logging.WithSession(logger, session)
	}

	tools := o.cfg.Capabilities.Tools()
	state := StateAwaitingModel
	roundTrips := 0
	var failure error
	var pending []Invocation

	for state != StateTerminal {
		switch state {
		case StateAwaitingModel:
			reply, err := o.complete(ctx, conv.Window(o.cfg.HistoryWindow), tools, roundTrips)
			if err != nil {
				failure = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
				logger.Error("model call failed", logging.RoundTrip(roundTrips), logging.Err(err))
				_ = conv.Append(AssistantMessage(modelFailureReply))
				state = StateTerminal
				continue
			}

			if len(reply.Invocations) == 0 {
				content := reply.Content
				if strings.TrimSpace(content) == "" {
					content = emptyReply
				}
				if o.cfg.VoiceFriendly {
					content = VoiceFriendlyTimes(content)
				}
				_ = conv.Append(AssistantMessage(content))
				state = StateTerminal
				continue
			}

			if roundTrips >= o.cfg.MaxRoundTrips {
				failure = fmt.Errorf("%w: %d round trips", ErrTurnBudgetExceeded, roundTrips)
				logger.Warn("turn budget exceeded",
					logging.RoundTrip(roundTrips),
					slog.Int("pending", len(reply.Invocations)))
				_ = conv.Append(AssistantMessage(budgetExceededReply))
				state = StateTerminal
				continue
			}

			pending = assignCorrelationIDs(reply.Invocations)
			_ = conv.Append(AssistantMessage(reply.Content, pending...))
			state = StateAwaitingOperations

		case StateAwaitingOperations:
			roundTrips++
			for _, inv := range pending {
				result := o.cfg.Capabilities.Execute(ctx, inv)
				logger.Debug("operation executed",
					logging.Operation(inv.Name),
					logging.RoundTrip(roundTrips),
					slog.Bool("is_error", result.IsError))
				_ = conv.Append(ResultMessage(inv, result))
			}
			pending = nil
			state = StateAwaitingModel
		}
	}

	messages := conv.Since(turnStart)
	result := TurnResult{
		Reply:      messages[len(messages)-1].Content,
		Messages:   messages,
		State:      state,
		RoundTrips: roundTrips,
		Failure:    failure,
	}

	outcome := instrumentation.OutcomeReply
	switch {
	case errors.Is(failure, ErrTurnBudgetExceeded):
		outcome = instrumentation.OutcomeBudgetExceeded
	case errors.Is(failure, ErrModelUnavailable):
		outcome = instrumentation.OutcomeModelError
	}
	o.cfg.Metrics.RecordTurn(ctx, outcome, roundTrips)
	if failure != nil {
		instrumentation.SetSpanError(span, failure)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	logger.Info("turn completed",
		slog.String("outcome", outcome),
		logging.RoundTrip(roundTrips),
		slog.Int("messages", len(messages)))

	return result, nil
}

func (o *Orchestrator) complete(ctx context.Context, messages []Message, tools []mcp.Tool, roundTrip int) (Reply, error) {
	ctx, span := instrumentation.StartModelSpan(ctx, o.cfg.ModelName, roundTrip)
	defer span.End()

	reply, err := o.cfg.Model.Complete(ctx, messages, tools)
	if err != nil {
		o.cfg.Metrics.RecordModelCall(ctx, instrumentation.StatusError)
		instrumentation.SetSpanError(span, err)
		return Reply{}, err
	}
	o.cfg.Metrics.RecordModelCall(ctx, instrumentation.StatusSuccess)
	instrumentation.SetSpanSuccess(span)
	return reply, nil
}

// assignCorrelationIDs fills in missing invocation ids. Ids repeated within a
// batch are replaced so every result can be told apart.
func assignCorrelationIDs(invocations []Invocation) []Invocation {
	out := make([]Invocation, len(invocations))
	seen := make(map[string]bool, len(invocations))
	for i, inv := range invocations {
		if inv.ID == "" || seen[inv.ID] {
			inv.ID = uuid.NewString()
		}
		seen[inv.ID] = true
		out[i] = inv
	}
	return out
}
