package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/agent/agenttest"
	"github.com/teemow/agenda/internal/transcript"
)

type chatFixture struct {
	handler     http.Handler
	model       *agenttest.ScriptedModel
	transcripts *transcript.Store
	locks       *SessionLocks
}

func newChatFixture(t *testing.T, maxRoundTrips int, steps ...agenttest.Step) *chatFixture {
	t.Helper()
	ctx := context.Background()

	store, err := transcript.Open(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	model := agenttest.NewScriptedModel(steps...)
	orchestrator, err := agent.New(agent.Config{
		Model:         model,
		Capabilities:  agenttest.NewRecordingCapabilities(mcp.NewTool("list_events")),
		MaxRoundTrips: maxRoundTrips,
		SystemPrompt:  func(time.Time) string { return "You are a test assistant." },
	})
	require.NoError(t, err)

	locks := NewSessionLocks(time.Minute, nil, nil)
	t.Cleanup(locks.Stop)

	api := NewChatAPI(orchestrator, store, locks, nil)
	return &chatFixture{
		handler:     NewRouter(RouterConfig{Chat: api}),
		model:       model,
		transcripts: store,
		locks:       locks,
	}
}

func (f *chatFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *chatFixture) createSession(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestChat_Conversation(t *testing.T) {
	f := newChatFixture(t, 3,
		agenttest.Text("Hi! How can I help with your calendar?"),
		agenttest.Invoke(agent.Invocation{ID: "c1", Name: "list_events", Arguments: json.RawMessage(`{}`)}),
		agenttest.Text("You have nothing scheduled tomorrow."),
	)
	id := f.createSession(t)

	rec := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/messages", ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, id, first.SessionID)
	assert.Equal(t, "Hi! How can I help with your calendar?", first.Reply)
	assert.False(t, first.Degraded)

	rec = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/messages", ChatRequest{Message: "what about tomorrow?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, "You have nothing scheduled tomorrow.", second.Reply)
	assert.Equal(t, 1, second.RoundTrips)

	// The second turn sees the first one as history.
	calls := f.model.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "hello", calls[1][1].Content)

	rec = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Messages, 6)
	assert.Equal(t, agent.RoleUser, history.Messages[0].Role)
	assert.Equal(t, agent.RoleOperationResult, history.Messages[4].Role)
	assert.Equal(t, "c1", history.Messages[4].CorrelationID)
}

func TestChat_DegradedReply(t *testing.T) {
	f := newChatFixture(t, 3, agenttest.Fail(errors.New("upstream 503")))
	id := f.createSession(t)

	rec := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/messages", ChatRequest{Message: "book lunch"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Degraded)
	assert.Equal(t, "model_unavailable", resp.Reason)
	assert.NotEmpty(t, resp.Reply)
}

func TestChat_BudgetExceeded(t *testing.T) {
	f := newChatFixture(t, 1,
		agenttest.Invoke(agent.Invocation{ID: "c1", Name: "list_events", Arguments: json.RawMessage(`{}`)}),
	)
	f.model.Repeat = true
	id := f.createSession(t)

	rec := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/messages", ChatRequest{Message: "list everything"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Degraded)
	assert.Equal(t, "turn_budget_exceeded", resp.Reason)
}

func TestChat_RequestErrors(t *testing.T) {
	f := newChatFixture(t, 3, agenttest.Text("ok"))
	id := f.createSession(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "unknown session", path: "/v1/sessions/missing/messages", body: ChatRequest{Message: "hi"}, status: http.StatusNotFound},
		{name: "empty message", path: "/v1/sessions/" + id + "/messages", body: ChatRequest{}, status: http.StatusBadRequest},
		{name: "unknown field", path: "/v1/sessions/" + id + "/messages", body: map[string]string{"text": "hi"}, status: http.StatusBadRequest},
		{name: "blank message", path: "/v1/sessions/" + id + "/messages", body: ChatRequest{Message: "   "}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Empty(t, f.model.Calls())
}

func TestChat_DeleteSession(t *testing.T) {
	f := newChatFixture(t, 3, agenttest.Text("ok"))
	id := f.createSession(t)

	rec := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/messages", ChatRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.locks.Len())

	rec = f.do(t, http.MethodDelete, "/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, f.locks.Len())

	rec = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
