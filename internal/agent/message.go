package agent

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleOperationResult carries the output of one Invocation.
	RoleOperationResult Role = "operation_result"
)

// Invocation is a request from the model to run one named operation.
type Invocation struct {
	// ID correlates the invocation with its result message.
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	// RawArguments holds the model's argument text when it is not valid
	// JSON. Arguments is empty in that case.
	RawArguments string `json:"raw_arguments,omitempty"`
}

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Invocations is only set on assistant messages.
	Invocations []Invocation `json:"invocations,omitempty"`
	// CorrelationID and Operation are only set on operation results.
	CorrelationID string `json:"correlation_id,omitempty"`
	Operation     string `json:"operation,omitempty"`
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string, invocations ...Invocation) Message {
	return Message{Role: RoleAssistant, Content: content, Invocations: invocations}
}

// ResultMessage returns the message recording the result of inv.
func ResultMessage(inv Invocation, result Result) Message {
	return Message{
		Role:          RoleOperationResult,
		Content:       result.Content,
		CorrelationID: inv.ID,
		Operation:     inv.Name,
	}
}

// Result is the output of an operation. Failures are reported in Content
// with IsError set; they are never returned as Go errors.
type Result struct {
	Content string
	IsError bool
}

// Reply is the model's answer to a message history: either final text or a
// batch of invocations.
type Reply struct {
	Content     string
	Invocations []Invocation
}

// Model produces the next reply for a message history.
type Model interface {
	Complete(ctx context.Context, messages []Message, tools []mcp.Tool) (Reply, error)
}

// Capabilities is the set of operations the model may invoke.
type Capabilities interface {
	Tools() []mcp.Tool
	Execute(ctx context.Context, inv Invocation) Result
}
