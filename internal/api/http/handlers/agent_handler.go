package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-agent/internal/agent"
	"github.com/spec-kit/crm-agent/internal/api/dto"
	"github.com/spec-kit/crm-agent/internal/auth"
	"github.com/spec-kit/crm-agent/internal/domain"
	apperrors "github.com/spec-kit/crm-agent/pkg/util"
)

// AgentHandler exposes the conversational agent endpoints.
type AgentHandler struct {
	orchestrator *agent.Orchestrator
}

// NewAgentHandler constructs handler.
func NewAgentHandler(orchestrator *agent.Orchestrator) *AgentHandler {
	return &AgentHandler{orchestrator: orchestrator}
}

// Turn POST /agent/turn.
func (h *AgentHandler) Turn(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AgentTurnRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	entityIDs := domain.EntityIDSet{}
	for kind, ids := range req.EntityIDs {
		if !domain.ValidEntityKind(kind) {
			return apperrors.NewValidationError("unknown entity kind", map[string]any{"kind": kind})
		}
		for _, id := range ids {
			entityIDs.Add(kind, id)
		}
	}

	result, err := h.orchestrator.HandleTurn(c.UserContext(), actor, agent.TurnInput{
		ConversationID: req.ConversationID,
		Content:        req.Content,
		EntityIDs:      entityIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgentTurnResponse{
		ConversationID: result.Conversation.ID,
		UserTurn:       dto.NewTurnResponse(result.UserTurn),
		AgentTurn:      dto.NewTurnResponse(result.AgentTurn),
	}})
}

// ListTurns GET /agent/conversations/:id/turns.
func (h *AgentHandler) ListTurns(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit := c.QueryInt("limit", 50)
	turns, err := h.orchestrator.ListTurns(c.UserContext(), actor, c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.TurnResponse, 0, len(turns))
	for i := range turns {
		items = append(items, dto.NewTurnResponse(&turns[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
