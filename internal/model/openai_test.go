package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/agent"
)

// chatServer answers every completion request with response and hands the
// decoded request to inspect.
func chatServer(t *testing.T, status int, response string, inspect func(map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if inspect != nil {
			inspect(body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestModel(t *testing.T, srv *httptest.Server) *OpenAI {
	t.Helper()
	m, err := NewOpenAI(Config{BaseURL: srv.URL, APIKey: "test-key", Name: "test-model"})
	require.NoError(t, err)
	return m
}

func TestNewOpenAI_Defaults(t *testing.T) {
	m, err := NewOpenAI(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultName, m.Name())
	assert.Equal(t, DefaultMaxTokens, m.maxTokens)
	assert.Equal(t, DefaultTimeout, m.timeout)

	_, err = NewOpenAI(Config{Temperature: 3})
	assert.Error(t, err)
}

func TestComplete_TextReply(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{
		"id": "cmpl-1",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "You are free at 2 PM."}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5}
	}`, func(body map[string]any) {
		assert.Equal(t, "test-model", body["model"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	})

	reply, err := newTestModel(t, srv).Complete(context.Background(), []agent.Message{
		agent.SystemMessage("You are a scheduling assistant."),
		agent.UserMessage("Am I free at 2?"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "You are free at 2 PM.", reply.Content)
	assert.Empty(t, reply.Invocations)
}

func TestComplete_ToolCalls(t *testing.T) {
	tool := mcp.NewTool("find_available_slots",
		mcp.WithDescription("Find free slots"),
		mcp.WithString("date", mcp.Required()),
	)

	srv := chatServer(t, http.StatusOK, `{
		"choices": [{"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "find_available_slots", "arguments": "{\"date\":\"2025-04-07\"}"}}]}}]
	}`, func(body map[string]any) {
		tools := body["tools"].([]any)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		assert.Equal(t, "find_available_slots", fn["name"])
		params := fn["parameters"].(map[string]any)
		assert.Equal(t, "object", params["type"])
		assert.Contains(t, params["properties"], "date")
	})

	reply, err := newTestModel(t, srv).Complete(context.Background(),
		[]agent.Message{agent.UserMessage("When am I free on Monday?")},
		[]mcp.Tool{tool})
	require.NoError(t, err)
	require.Len(t, reply.Invocations, 1)
	assert.Equal(t, "call_1", reply.Invocations[0].ID)
	assert.Equal(t, "find_available_slots", reply.Invocations[0].Name)
	assert.JSONEq(t, `{"date":"2025-04-07"}`, string(reply.Invocations[0].Arguments))
}

func TestComplete_MalformedToolArguments(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{
		"choices": [{"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "list_events", "arguments": "{\"time_min\": \"2025-04-07T09:00"}}]}}]
	}`, nil)

	reply, err := newTestModel(t, srv).Complete(context.Background(),
		[]agent.Message{agent.UserMessage("What is on Monday?")}, nil)
	require.NoError(t, err)
	require.Len(t, reply.Invocations, 1)
	inv := reply.Invocations[0]
	assert.Nil(t, inv.Arguments)
	assert.Equal(t, `{"time_min": "2025-04-07T09:00`, inv.RawArguments)

	_, err = json.Marshal(reply.Invocations)
	assert.NoError(t, err)
}

func TestComplete_ReplaysMalformedArgumentsVerbatim(t *testing.T) {
	inv := agent.Invocation{ID: "call_1", Name: "list_events", RawArguments: `{"time_min": `}
	srv := chatServer(t, http.StatusOK, `{"choices":[{"index":0,"message":{"role":"assistant","content":"Let me try again."}}]}`,
		func(body map[string]any) {
			msgs := body["messages"].([]any)
			require.Len(t, msgs, 3)
			calls := msgs[1].(map[string]any)["tool_calls"].([]any)
			fn := calls[0].(map[string]any)["function"].(map[string]any)
			assert.Equal(t, `{"time_min": `, fn["arguments"])
		})

	_, err := newTestModel(t, srv).Complete(context.Background(), []agent.Message{
		agent.UserMessage("What is on Monday?"),
		agent.AssistantMessage("", inv),
		agent.ResultMessage(inv, agent.Result{Content: `{"error":{"kind":"invalid_arguments"}}`, IsError: true}),
	}, nil)
	require.NoError(t, err)
}

func TestComplete_SendsResultsAsToolMessages(t *testing.T) {
	inv := agent.Invocation{ID: "call_1", Name: "list_calendars"}
	srv := chatServer(t, http.StatusOK, `{"choices":[{"index":0,"message":{"role":"assistant","content":"One calendar."}}]}`,
		func(body map[string]any) {
			msgs := body["messages"].([]any)
			require.Len(t, msgs, 3)

			assistant := msgs[1].(map[string]any)
			calls := assistant["tool_calls"].([]any)
			require.Len(t, calls, 1)
			fn := calls[0].(map[string]any)["function"].(map[string]any)
			assert.Equal(t, "{}", fn["arguments"])

			result := msgs[2].(map[string]any)
			assert.Equal(t, "tool", result["role"])
			assert.Equal(t, "call_1", result["tool_call_id"])
			assert.Equal(t, `{"calendars":[]}`, result["content"])
		})

	_, err := newTestModel(t, srv).Complete(context.Background(), []agent.Message{
		agent.UserMessage("Which calendars do I have?"),
		agent.AssistantMessage("", inv),
		agent.ResultMessage(inv, agent.Result{Content: `{"calendars":[]}`}),
	}, nil)
	require.NoError(t, err)
}

func TestComplete_Errors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := chatServer(t, http.StatusServiceUnavailable,
			`{"error":{"message":"overloaded","type":"server_error"}}`, nil)
		_, err := newTestModel(t, srv).Complete(context.Background(),
			[]agent.Message{agent.UserMessage("hi")}, nil)
		assert.Error(t, err)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, `{"choices":[]}`, nil)
		_, err := newTestModel(t, srv).Complete(context.Background(),
			[]agent.Message{agent.UserMessage("hi")}, nil)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}
