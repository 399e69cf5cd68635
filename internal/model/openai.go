package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/logging"
)

const (
	// DefaultBaseURL is the Hugging Face inference router.
	DefaultBaseURL = "https://router.huggingface.co/v1"
	// DefaultName is the model used when none is configured.
	DefaultName = "deepseek-ai/DeepSeek-V3.2"
	// DefaultMaxTokens caps each completion.
	DefaultMaxTokens = 1024
	// DefaultTimeout bounds one completion request.
	DefaultTimeout = 60 * time.Second
)

// ErrEmptyResponse is returned when the endpoint answers without choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Config configures an OpenAI adapter.
type Config struct {
	BaseURL     string
	APIKey      string
	Name        string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// OpenAI implements agent.Model over an OpenAI-compatible endpoint.
type OpenAI struct {
	client      *openai.Client
	name        string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      *slog.Logger
}

var _ agent.Model = (*OpenAI)(nil)

// NewOpenAI builds the adapter. Zero values fall back to the package defaults.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be within [0, 2], got %v", cfg.Temperature)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		name:        cfg.Name,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logging.WithComponent(cfg.Logger, "model"),
	}, nil
}

// Name returns the configured model id.
func (o *OpenAI) Name() string {
	return o.name
}

// Complete implements agent.Model.
func (o *OpenAI) Complete(ctx context.Context, messages []agent.Message, tools []mcp.Tool) (agent.Reply, error) {
	defs, err := toolDefinitions(tools)
	if err != nil {
		return agent.Reply{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:       o.name,
		Messages:    chatMessages(messages),
		Tools:       defs,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.logger.Warn("chat completion failed",
			slog.String("model", o.name),
			slog.Duration("duration", time.Since(start)),
			logging.Err(err))
		return agent.Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return agent.Reply{}, ErrEmptyResponse
	}

	o.logger.Debug("chat completion",
		slog.String("model", o.name),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
		slog.Duration("duration", time.Since(start)))

	return toReply(resp.Choices[0].Message), nil
}

// chatMessages maps the conversation onto chat-completion roles. Operation
// results become tool messages answering the invocation with the same id.
func chatMessages(messages []agent.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case agent.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case agent.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, inv := range m.Invocations {
				args := string(inv.Arguments)
				if inv.RawArguments != "" {
					args = inv.RawArguments
				}
				if args == "" {
					args = "{}"
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   inv.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      inv.Name,
						Arguments: args,
					},
				})
			}
			out = append(out, msg)
		case agent.RoleOperationResult:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.Operation,
				ToolCallID: m.CorrelationID,
			})
		}
	}
	return out
}

func toolDefinitions(tools []mcp.Tool) ([]openai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		params := tool.RawInputSchema
		if len(params) == 0 {
			raw, err := json.Marshal(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("failed to encode schema of %s: %w", tool.Name, err)
			}
			params = raw
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func toReply(msg openai.ChatCompletionMessage) agent.Reply {
	reply := agent.Reply{Content: msg.Content}
	for _, call := range msg.ToolCalls {
		inv := agent.Invocation{ID: call.ID, Name: call.Function.Name}
		switch args := call.Function.Arguments; {
		case args == "":
		case json.Valid([]byte(args)):
			inv.Arguments = json.RawMessage(args)
		default:
			inv.RawArguments = args
		}
		reply.Invocations = append(reply.Invocations, inv)
	}
	return reply
}
