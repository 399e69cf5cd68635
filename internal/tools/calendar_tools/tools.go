package calendar_tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/xeipuuv/gojsonschema"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/logging"
	"github.com/teemow/agenda/internal/scheduling"
	"github.com/teemow/agenda/internal/tools/common"
)

// Registry exposes the calendar operations. It implements agent.Capabilities.
type Registry struct {
	svc      *scheduling.Service
	tools    []mcp.Tool
	schemas  map[Operation]*gojsonschema.Schema
	validate *validator.Validate
	inst     common.Instrumentation
	logger   *slog.Logger
}

var _ agent.Capabilities = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithInstrumentation records metrics, spans and audit entries per invocation.
func WithInstrumentation(inst common.Instrumentation) Option {
	return func(r *Registry) {
		r.inst = inst
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.WithComponent(logger, "tools")
	}
}

// NewRegistry builds the registry and compiles the argument schemas.
func NewRegistry(svc *scheduling.Service, opts ...Option) (*Registry, error) {
	if svc == nil {
		return nil, fmt.Errorf("scheduling service is required")
	}

	r := &Registry{
		svc:      svc,
		tools:    definitions(),
		schemas:  make(map[Operation]*gojsonschema.Schema),
		validate: newValidator(),
		logger:   logging.WithComponent(nil, "tools"),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, tool := range r.tools {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", tool.Name, err)
		}
		r.schemas[Operation(tool.Name)] = schema
	}
	return r, nil
}

// Tools implements agent.Capabilities.
func (r *Registry) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Decode turns a named invocation with raw JSON arguments into a typed
// request. Arguments are checked against the tool's JSON schema first, then
// decoded, then checked against the request's field constraints. Failures
// are *ErrorDescriptor values.
func (r *Registry) Decode(name string, raw json.RawMessage) (Request, error) {
	op := Operation(name)
	req, ok := newRequest(op)
	if !ok {
		return nil, &ErrorDescriptor{
			Kind:    KindUnknownOperation,
			Message: fmt.Sprintf("unknown operation %q", name),
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = json.RawMessage(`{}`)
	}

	result, err := r.schemas[op].Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, invalidArguments(fmt.Sprintf("arguments are not valid JSON: %v", err))
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, invalidArguments(strings.Join(problems, "; "))
	}

	if err := json.Unmarshal(raw, req); err != nil {
		return nil, invalidArguments(err.Error())
	}
	if err := r.validate.Struct(req); err != nil {
		return nil, invalidArguments(validationMessage(err))
	}

	// Hand out values so callers can type-switch on the plain struct types.
	return deref(req), nil
}

// Execute implements agent.Capabilities. It never returns a Go error; failures
// are reported as an ErrorDescriptor in the result content.
func (r *Registry) Execute(ctx context.Context, inv agent.Invocation) agent.Result {
	out := common.InstrumentedInvocation(ctx, r.inst, inv, func(ctx context.Context) common.Outcome {
		if inv.RawArguments != "" {
			return failure(invalidArguments("arguments are not valid JSON"))
		}
		req, err := r.Decode(inv.Name, inv.Arguments)
		if err != nil {
			return failure(err)
		}
		payload, err := r.dispatch(ctx, req)
		if err != nil {
			return failure(err)
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return failure(fmt.Errorf("failed to encode result: %w", err))
		}
		return common.Outcome{Content: string(raw)}
	})

	if out.ErrorKind != "" {
		r.logger.Debug("operation returned an error",
			logging.Operation(inv.Name),
			slog.String("error_kind", out.ErrorKind))
	}
	return agent.Result{Content: out.Content, IsError: out.ErrorKind != ""}
}

func failure(err error) common.Outcome {
	d := describe(err)
	return common.Outcome{Content: d.JSON(), ErrorKind: string(d.Kind)}
}

// RegisterCalendarTools exposes every operation of reg on an MCP server.
func RegisterCalendarTools(s *mcpserver.MCPServer, reg *Registry) error {
	if reg == nil {
		return fmt.Errorf("registry is required")
	}
	for _, tool := range reg.Tools() {
		name := tool.Name
		s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := common.ArgumentsJSON(request.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(invalidArguments(err.Error()).JSON()), nil
			}
			res := reg.Execute(ctx, agent.Invocation{ID: uuid.NewString(), Name: name, Arguments: args})
			if res.IsError {
				return mcp.NewToolResultError(res.Content), nil
			}
			return mcp.NewToolResultText(res.Content), nil
		})
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			problems = append(problems, field+" is required")
		case "datetime":
			problems = append(problems, field+" must use the "+fe.Param()+" layout")
		default:
			problems = append(problems, fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(problems, "; ")
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func deref(req Request) Request {
	switch r := req.(type) {
	case *ListEventsRequest:
		return *r
	case *CreateEventRequest:
		return *r
	case *UpdateEventRequest:
		return *r
	case *DeleteEventRequest:
		return *r
	case *CheckAvailabilityRequest:
		return *r
	case *FindAvailableSlotsRequest:
		return *r
	case *GetEventDetailsRequest:
		return *r
	case *ListCalendarsRequest:
		return *r
	case *GetDailyScheduleRequest:
		return *r
	case *SearchActivityLogsRequest:
		return *r
	default:
		return req
	}
}
