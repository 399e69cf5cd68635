package agent

import (
	"errors"
	"fmt"
)

// ErrSystemMessage is returned when a system message would end up anywhere
// but the head of a conversation.
var ErrSystemMessage = errors.New("system message is only allowed at the start of a conversation")

// Conversation is an append-only message sequence with at most one system
// message, which comes first.
type Conversation struct {
	messages []Message
}

// NewConversation starts a conversation from an optional system prompt and
// prior history. History must not contain system messages.
func NewConversation(system string, history ...Message) (*Conversation, error) {
	c := &Conversation{messages: make([]Message, 0, len(history)+1)}
	if system != "" {
		c.messages = append(c.messages, SystemMessage(system))
	}
	if err := c.Append(history...); err != nil {
		return nil, err
	}
	return c, nil
}

// Append adds messages to the end of the conversation.
func (c *Conversation) Append(msgs ...Message) error {
	for i, m := range msgs {
		if m.Role == RoleSystem {
			return fmt.Errorf("message %d: %w", i, ErrSystemMessage)
		}
	}
	c.messages = append(c.messages, msgs...)
	return nil
}

// Len returns the number of messages, including the system message.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of all messages.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Since returns a copy of the messages from index i on.
func (c *Conversation) Since(i int) []Message {
	if i >= len(c.messages) {
		return nil
	}
	out := make([]Message, len(c.messages)-i)
	copy(out, c.messages[i:])
	return out
}

// Window returns the system message followed by at most n of the latest
// messages. The tail always begins with a user message so that invocations
// are never separated from their results. If the latest user message is more
// than n messages back, the tail starts there anyway. n <= 0 means no limit.
func (c *Conversation) Window(n int) []Message {
	head, body := c.split()
	if n <= 0 || len(body) <= n {
		return append(head, body...)
	}

	start := len(body) - n
	for start < len(body) && body[start].Role != RoleUser {
		start++
	}
	if start == len(body) {
		start = len(body) - n
		for start > 0 && body[start].Role != RoleUser {
			start--
		}
	}
	return append(head, body[start:]...)
}

func (c *Conversation) split() (head, body []Message) {
	if len(c.messages) > 0 && c.messages[0].Role == RoleSystem {
		return []Message{c.messages[0]}, append([]Message(nil), c.messages[1:]...)
	}
	return []Message{}, append([]Message(nil), c.messages...)
}
