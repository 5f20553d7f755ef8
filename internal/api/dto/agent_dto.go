package dto

import (
	"time"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// AgentTurnRequest payload for one operator message.
type AgentTurnRequest struct {
	ConversationID string                       `json:"conversation_id"`
	Content        string                       `json:"content"`
	EntityIDs      map[domain.EntityKind][]string `json:"entity_ids"`
}

// TurnResponse is the API view of a conversation turn.
type TurnResponse struct {
	ID             string                         `json:"id"`
	ConversationID string                         `json:"conversation_id"`
	Content        string                         `json:"content"`
	IsAI           bool                           `json:"is_ai"`
	EntityIDs      map[domain.EntityKind][]string `json:"entity_ids,omitempty"`
	CreatedAt      time.Time                      `json:"created_at"`
}

// NewTurnResponse maps a domain turn.
func NewTurnResponse(turn *domain.Turn) TurnResponse {
	return TurnResponse{
		ID:             turn.ID,
		ConversationID: turn.ConversationID,
		Content:        turn.Content,
		IsAI:           turn.IsAI,
		EntityIDs:      turn.EntityIDs,
		CreatedAt:      turn.CreatedAt,
	}
}

// AgentTurnResponse bundles the persisted exchange.
type AgentTurnResponse struct {
	ConversationID string       `json:"conversation_id"`
	UserTurn       TurnResponse `json:"user_turn"`
	AgentTurn      TurnResponse `json:"agent_turn"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
