package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/logging"
	"github.com/teemow/agenda/internal/transcript"
)

// maxChatBodyBytes caps the size of a chat request body.
const maxChatBodyBytes = 64 << 10

// Transcripts stores conversation histories per session.
type Transcripts interface {
	Create(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Append(ctx context.Context, sessionID string, messages []agent.Message) error
	Load(ctx context.Context, sessionID string) ([]agent.Message, error)
	Delete(ctx context.Context, sessionID string) error
}

// TurnRunner answers one user message given the prior history.
type TurnRunner interface {
	RunTurn(ctx context.Context, history []agent.Message, userText string) (agent.TurnResult, error)
}

// ChatAPI serves the session endpoints.
type ChatAPI struct {
	turns       TurnRunner
	transcripts Transcripts
	locks       *SessionLocks
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewChatAPI wires the chat handlers.
func NewChatAPI(turns TurnRunner, transcripts Transcripts, locks *SessionLocks, logger *slog.Logger) *ChatAPI {
	return &ChatAPI{
		turns:       turns,
		transcripts: transcripts,
		locks:       locks,
		validate:    validator.New(),
		logger:      logging.WithComponent(logger, "server"),
	}
}

// ChatRequest is the body of POST /v1/sessions/{id}/messages.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

// ChatResponse is the answer to one turn.
type ChatResponse struct {
	SessionID  string `json:"session_id"`
	Reply      string `json:"reply"`
	RoundTrips int    `json:"round_trips"`
	// Degraded is set when the reply is an apology rather than an answer.
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type sessionResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []agent.Message `json:"messages,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes mounts the session endpoints.
func (a *ChatAPI) Routes(r chi.Router) {
	r.Post("/sessions", a.createSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/messages", a.postMessage)
		r.Get("/messages", a.getMessages)
		r.Delete("/", a.deleteSession)
	})
}

func (a *ChatAPI) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if err := a.transcripts.Create(r.Context(), id); err != nil {
		a.logger.Error("failed to create session", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create session"})
		return
	}
	a.logger.Info("session created", logging.Session(id))
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id})
}

func (a *ChatAPI) postMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required and limited to 8000 characters"})
		return
	}

	ctx := agent.WithSession(r.Context(), id)
	if !a.sessionExists(ctx, w, id) {
		return
	}

	unlock, err := a.locks.Lock(ctx, id)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session is busy"})
		return
	}
	defer unlock()

	history, err := a.transcripts.Load(ctx, id)
	if err != nil {
		a.writeStoreError(w, id, err)
		return
	}

	result, err := a.turns.RunTurn(ctx, history, req.Message)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := a.transcripts.Append(ctx, id, result.Messages); err != nil {
		a.logger.Error("failed to store turn", logging.Session(id), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store conversation"})
		return
	}

	resp := ChatResponse{SessionID: id, Reply: result.Reply, RoundTrips: result.RoundTrips}
	if result.Failure != nil {
		resp.Degraded = true
		switch {
		case errors.Is(result.Failure, agent.ErrTurnBudgetExceeded):
			resp.Reason = "turn_budget_exceeded"
		case errors.Is(result.Failure, agent.ErrModelUnavailable):
			resp.Reason = "model_unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *ChatAPI) getMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	messages, err := a.transcripts.Load(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Messages: messages})
}

func (a *ChatAPI) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := a.transcripts.Delete(r.Context(), id); err != nil {
		a.writeStoreError(w, id, err)
		return
	}
	a.locks.Forget(id)
	a.logger.Info("session deleted", logging.Session(id))
	w.WriteHeader(http.StatusNoContent)
}

func (a *ChatAPI) sessionExists(ctx context.Context, w http.ResponseWriter, id string) bool {
	ok, err := a.transcripts.Exists(ctx, id)
	if err != nil {
		a.writeStoreError(w, id, err)
		return false
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: transcript.ErrSessionNotFound.Error()})
		return false
	}
	return true
}

func (a *ChatAPI) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, transcript.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	a.logger.Error("transcript store failed", logging.Session(id), logging.Err(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "transcript store failed"})
}
