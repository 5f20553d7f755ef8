package agent

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/llm"
	"github.com/spec-kit/crm-agent/internal/mention"
	"github.com/spec-kit/crm-agent/internal/repository"
	util "github.com/spec-kit/crm-agent/pkg/util"
)

// Orchestrator drives one conversational turn: expand mentions, call the
// completion capability, execute requested tool calls sequentially, and
// persist both turns once the loop has finished. Nothing is written for a
// turn that fails mid-loop.
type Orchestrator struct {
	conversations repository.ConversationRepository
	resolver      *mention.Resolver
	completer     llm.Completer
	dispatcher    *Dispatcher
	logger        *zap.Logger
	maxIterations int
	historyWindow int
}

// OrchestratorDependencies bundles collaborators for the orchestrator.
type OrchestratorDependencies struct {
	Conversations repository.ConversationRepository
	Resolver      *mention.Resolver
	Completer     llm.Completer
	Dispatcher    *Dispatcher
	Logger        *zap.Logger
	MaxIterations int
	HistoryWindow int
}

// NewOrchestrator constructs the orchestrator.
func NewOrchestrator(deps OrchestratorDependencies) *Orchestrator {
	maxIterations := deps.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 5
	}
	historyWindow := deps.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Orchestrator{
		conversations: deps.Conversations,
		resolver:      deps.Resolver,
		completer:     deps.Completer,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		maxIterations: maxIterations,
		historyWindow: historyWindow,
	}
}

// TurnInput is one incoming operator message.
type TurnInput struct {
	ConversationID string
	Content        string
	EntityIDs      domain.EntityIDSet
}

// TurnResult carries the persisted turns of a completed loop.
type TurnResult struct {
	Conversation *domain.Conversation
	UserTurn     *domain.Turn
	AgentTurn    *domain.Turn
}

// HandleTurn processes one operator message end to end. Concurrency within a
// conversation is serialized by this call; different conversations are
// unconstrained.
func (o *Orchestrator) HandleTurn(ctx context.Context, actor *domain.Person, input TurnInput) (*TurnResult, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor identity required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, util.NewValidationError("content required", nil)
	}

	conv, err := o.loadOrCreateConversation(ctx, actor, input.ConversationID, content)
	if err != nil {
		return nil, err
	}

	// ids arrive from the client and from tags embedded in the text;
	// both feed the same batched resolution
	entityIDs := domain.EntityIDSet{}
	for kind, ids := range input.EntityIDs {
		for _, id := range ids {
			entityIDs.Add(kind, id)
		}
	}
	for kind, ids := range mention.ExtractIDs(content) {
		for _, id := range ids {
			entityIDs.Add(kind, id)
		}
	}

	resolved, err := o.resolver.Resolve(ctx, entityIDs)
	if err != nil {
		return nil, util.MapError(err)
	}
	expanded := mention.Expand(content, resolved, o.logger)

	messages, err := o.buildHistory(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: expanded,
	})

	finalText, err := o.runLoop(ctx, actor, messages)
	if err != nil {
		return nil, err
	}

	userTurn := &domain.Turn{
		ConversationID: conv.ID,
		Content:        content,
		EntityIDs:      entityIDs,
	}
	agentTurn := &domain.Turn{
		ConversationID: conv.ID,
		Content:        finalText,
		IsAI:           true,
	}
	if err := o.conversations.AppendTurn(ctx, userTurn); err != nil {
		return nil, util.MapError(err)
	}
	if err := o.conversations.AppendTurn(ctx, agentTurn); err != nil {
		return nil, util.MapError(err)
	}

	return &TurnResult{Conversation: conv, UserTurn: userTurn, AgentTurn: agentTurn}, nil
}

// ListTurns returns a conversation's turns in creation order, owner only.
func (o *Orchestrator) ListTurns(ctx context.Context, actor *domain.Person, conversationID string, limit int) ([]domain.Turn, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor identity required")
	}
	conv, err := o.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != actor.ID {
		return nil, util.NewForbidden("not your conversation")
	}
	turns, err := o.conversations.ListRecentTurns(ctx, conv.ID, limit)
	if err != nil {
		return nil, util.MapError(err)
	}
	return turns, nil
}

// runLoop alternates completion calls and tool executions until the model
// produces a final text or the iteration cap forces one.
func (o *Orchestrator) runLoop(ctx context.Context, actor *domain.Person, messages []openai.ChatCompletionMessage) (string, error) {
	catalogue := o.dispatcher.Catalogue()

	for i := 0; i < o.maxIterations; i++ {
		completion, err := o.completer.Complete(ctx, llm.CompletionRequest{
			System:   systemPrompt,
			Tools:    catalogue,
			Messages: messages,
		})
		if err != nil {
			return "", util.MapError(err)
		}
		if !completion.IsToolCall() {
			return completion.FinalText, nil
		}

		result := o.dispatcher.Execute(ctx, actor, completion.ToolName, completion.ToolArgs)
		messages = append(messages,
			openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   completion.ToolCallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      completion.ToolName,
						Arguments: completion.ToolArgs,
					},
				}},
			},
			openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: completion.ToolCallID,
			},
		)
	}

	// cap exhausted: one last completion with no tools on offer
	if o.logger != nil {
		o.logger.Warn("tool iteration cap reached, forcing final response",
			zap.Int("max_iterations", o.maxIterations))
	}
	completion, err := o.completer.Complete(ctx, llm.CompletionRequest{
		System:   systemPrompt,
		Messages: messages,
	})
	if err != nil {
		return "", util.MapError(err)
	}
	return completion.FinalText, nil
}

// buildHistory replays the newest turns to the model oldest-first. Stored
// turn text keeps its tags; only the current input gets expanded.
func (o *Orchestrator) buildHistory(ctx context.Context, conversationID string) ([]openai.ChatCompletionMessage, error) {
	turns, err := o.conversations.ListRecentTurns(ctx, conversationID, o.historyWindow)
	if err != nil {
		return nil, util.MapError(err)
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.IsAI {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	return messages, nil
}

func (o *Orchestrator) loadOrCreateConversation(ctx context.Context, actor *domain.Person, conversationID, content string) (*domain.Conversation, error) {
	if conversationID == "" {
		conv := &domain.Conversation{
			OwnerID: actor.ID,
			Title:   titleFrom(content),
		}
		if err := o.conversations.Create(ctx, conv); err != nil {
			return nil, util.MapError(err)
		}
		return conv, nil
	}
	conv, err := o.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != actor.ID {
		return nil, util.NewForbidden("not your conversation")
	}
	return conv, nil
}

func (o *Orchestrator) loadConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	conv, err := o.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("conversation", map[string]any{"conversation_id": conversationID})
		}
		return nil, util.MapError(err)
	}
	return conv, nil
}

func titleFrom(content string) string {
	const max = 80
	if len(content) <= max {
		return content
	}
	return content[:max]
}
