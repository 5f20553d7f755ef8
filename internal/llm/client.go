package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/spec-kit/crm-agent/internal/config"
)

// ErrCompletionTimeout marks a completion call that exceeded its deadline.
// The turn it belongs to is aborted and never persisted as successful.
var ErrCompletionTimeout = errors.New("completion timed out")

// CompletionRequest carries everything the completion capability needs.
type CompletionRequest struct {
	System   string
	Tools    []openai.Tool
	Messages []openai.ChatCompletionMessage
}

// Completion is either a final message or a request to invoke one tool.
type Completion struct {
	FinalText  string
	ToolCallID string
	ToolName   string
	ToolArgs   string
}

// IsToolCall reports whether the model asked for a tool invocation.
func (c *Completion) IsToolCall() bool {
	return c.ToolName != ""
}

// Completer is the black-box completion capability.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Client calls an OpenAI-compatible chat completion API.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds the client from configuration. A custom APIURL points the
// client at any OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		apiCfg.BaseURL = cfg.APIURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout(),
	}
}

// Complete performs one chat completion bounded by the configured timeout.
// At most one tool call is honored per completion.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, req.Messages...)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    req.Tools,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrCompletionTimeout
		}
		return nil, fmt.Errorf("completion call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		return &Completion{
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			ToolArgs:   call.Function.Arguments,
		}, nil
	}
	return &Completion{FinalText: msg.Content}, nil
}
