// Package agenttest provides scripted models and capability sets for tests
// of code that drives an agent.Orchestrator.
package agenttest

import (
	"context"
	"errors"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/agenda/internal/agent"
)

// ErrScriptExhausted is returned when a ScriptedModel runs out of replies.
var ErrScriptExhausted = errors.New("scripted model has no more replies")

// Step is one scripted model response.
type Step struct {
	Reply agent.Reply
	Err   error
}

// ScriptedModel replays a fixed sequence of replies and records every
// message history it was called with.
type ScriptedModel struct {
	mu    sync.Mutex
	steps []Step
	// Repeat keeps returning the last step once the script is exhausted.
	Repeat bool
	calls  [][]agent.Message
}

// NewScriptedModel returns a model that answers with steps in order.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

// Text is a step answering with final text.
func Text(content string) Step {
	return Step{Reply: agent.Reply{Content: content}}
}

// Invoke is a step requesting the given invocations.
func Invoke(invocations ...agent.Invocation) Step {
	return Step{Reply: agent.Reply{Invocations: invocations}}
}

// Fail is a step failing with err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Complete implements agent.Model.
func (m *ScriptedModel) Complete(_ context.Context, messages []agent.Message, _ []mcp.Tool) (agent.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]agent.Message(nil), messages...))
	idx := len(m.calls) - 1
	if idx >= len(m.steps) {
		if !m.Repeat || len(m.steps) == 0 {
			return agent.Reply{}, ErrScriptExhausted
		}
		idx = len(m.steps) - 1
	}
	return m.steps[idx].Reply, m.steps[idx].Err
}

// Calls returns the message histories seen so far.
func (m *ScriptedModel) Calls() [][]agent.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]agent.Message(nil), m.calls...)
}

// RecordingCapabilities answers every invocation with a fixed result and
// records the invocations in order.
type RecordingCapabilities struct {
	mu      sync.Mutex
	tools   []mcp.Tool
	Respond func(agent.Invocation) agent.Result
	seen    []agent.Invocation
}

// NewRecordingCapabilities exposes tools and echoes each invocation name.
func NewRecordingCapabilities(tools ...mcp.Tool) *RecordingCapabilities {
	return &RecordingCapabilities{
		tools: tools,
		Respond: func(inv agent.Invocation) agent.Result {
			return agent.Result{Content: `{"ok":true,"operation":"` + inv.Name + `"}`}
		},
	}
}

// Tools implements agent.Capabilities.
func (r *RecordingCapabilities) Tools() []mcp.Tool {
	return r.tools
}

// Execute implements agent.Capabilities.
func (r *RecordingCapabilities) Execute(_ context.Context, inv agent.Invocation) agent.Result {
	r.mu.Lock()
	r.seen = append(r.seen, inv)
	r.mu.Unlock()
	return r.Respond(inv)
}

// Invocations returns what was executed, in order.
func (r *RecordingCapabilities) Invocations() []agent.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]agent.Invocation(nil), r.seen...)
}
