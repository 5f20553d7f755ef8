package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/observability"
)

// ToolParams holds the structured arguments of one tool call.
type ToolParams map[string]any

// Read parses raw JSON arguments into the params.
func (p *ToolParams) Read(s string) error {
	return json.Unmarshal([]byte(s), p)
}

// Unmarshal round-trips the params into a typed argument struct.
func (p ToolParams) Unmarshal(v any) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ToolDefinition declares a tool's name and argument schema.
type ToolDefinition struct {
	Name        string
	Description string
	Properties  map[string]jsonschema.Definition
	Required    []string
}

// ToFunction converts the definition to the completion API's function shape.
func (d ToolDefinition) ToFunction() *openai.FunctionDefinition {
	return &openai.FunctionDefinition{
		Name:        d.Name,
		Description: d.Description,
		Parameters: jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: d.Properties,
			Required:   d.Required,
		},
	}
}

// Tool is one mutation the agent may invoke. Run performs at most one ticket
// mutation and reports the outcome as text for the model.
type Tool interface {
	Definition() ToolDefinition
	Run(ctx context.Context, actor *domain.Person, params ToolParams) (string, error)
}

// Tools is the agent's tool catalogue.
type Tools []Tool

// ToOpenAITools renders the catalogue for the completion request.
func (t Tools) ToOpenAITools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(t))
	for _, tool := range t {
		tools = append(tools, openai.Tool{
			Type:     openai.ToolTypeFunction,
			Function: tool.Definition().ToFunction(),
		})
	}
	return tools
}

// Find returns the tool with the given name, or nil.
func (t Tools) Find(name string) Tool {
	for _, tool := range t {
		if tool.Definition().Name == name {
			return tool
		}
	}
	return nil
}

// Dispatcher validates and executes tool calls. Every failure comes back as a
// string result so the conversational turn continues and the model can
// explain the problem in natural language.
type Dispatcher struct {
	tools   Tools
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(tools Tools, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{tools: tools, metrics: metrics, logger: logger}
}

// Catalogue exposes the tool list for the completion request.
func (d *Dispatcher) Catalogue() []openai.Tool {
	return d.tools.ToOpenAITools()
}

// Execute runs one named tool with raw JSON arguments and returns the result
// text. Tools run strictly sequentially within a turn.
func (d *Dispatcher) Execute(ctx context.Context, actor *domain.Person, name, rawArgs string) string {
	tool := d.tools.Find(name)
	if tool == nil {
		d.metrics.RecordToolCall(name, false)
		return fmt.Sprintf("Error: unknown tool %q", name)
	}

	params := ToolParams{}
	if err := params.Read(rawArgs); err != nil {
		d.metrics.RecordToolCall(name, false)
		return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
	}

	result, err := tool.Run(ctx, actor, params)
	if err != nil {
		d.metrics.RecordToolCall(name, false)
		if d.logger != nil {
			d.logger.Warn("tool call failed",
				zap.String("tool", name),
				zap.Error(err))
		}
		return fmt.Sprintf("Error: %v", err)
	}
	d.metrics.RecordToolCall(name, true)
	return result
}
