package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// ConversationRepository persists conversations and their append-only turns.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	AppendTurn(ctx context.Context, turn *domain.Turn) error
	// ListRecentTurns returns the newest limit turns ordered oldest-first.
	ListRecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository constructs repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	const query = `
        INSERT INTO conversations (owner_id, title)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		conv.OwnerID,
		conv.Title,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	const query = `
        SELECT id, owner_id, title, created_at, updated_at
        FROM conversations WHERE id=$1`
	var conv domain.Conversation
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.OwnerID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) AppendTurn(ctx context.Context, turn *domain.Turn) error {
	entityIDs, err := json.Marshal(turn.EntityIDs)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO conversation_turns (conversation_id, content, is_ai, entity_ids)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		turn.ConversationID,
		turn.Content,
		turn.IsAI,
		entityIDs,
	).Scan(&turn.ID, &turn.CreatedAt)
}

func (r *conversationRepository) ListRecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
        SELECT id, conversation_id, content, is_ai, entity_ids, created_at FROM (
            SELECT id, conversation_id, content, is_ai, entity_ids, created_at
            FROM conversation_turns
            WHERE conversation_id=$1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        ) recent ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTurns(rows)
}

func scanTurns(rows pgx.Rows) ([]domain.Turn, error) {
	var result []domain.Turn
	for rows.Next() {
		var turn domain.Turn
		var entityIDs []byte
		if err := rows.Scan(
			&turn.ID,
			&turn.ConversationID,
			&turn.Content,
			&turn.IsAI,
			&entityIDs,
			&turn.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(entityIDs) > 0 {
			if err := json.Unmarshal(entityIDs, &turn.EntityIDs); err != nil {
				return nil, err
			}
		}
		result = append(result, turn)
	}
	return result, rows.Err()
}
