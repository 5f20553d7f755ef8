package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// FeedbackRepository manages the one-per-ticket feedback records.
type FeedbackRepository interface {
	// InsertIfAbsent creates the feedback row for a ticket unless one already
	// exists. It reports whether a row was inserted.
	InsertIfAbsent(ctx context.Context, ticketID, createdBy string) (bool, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.TicketFeedback, error)
	Submit(ctx context.Context, ticketID string, rating int, feedback *string) (*domain.TicketFeedback, error)
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository constructs repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

const feedbackColumns = `id, ticket_id, created_by, rating, feedback, created_at, updated_at`

func (r *feedbackRepository) InsertIfAbsent(ctx context.Context, ticketID, createdBy string) (bool, error) {
	const query = `
        INSERT INTO ticket_feedback (ticket_id, created_by)
        VALUES ($1,$2)
        ON CONFLICT (ticket_id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, ticketID, createdBy)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *feedbackRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.TicketFeedback, error) {
	const query = `SELECT ` + feedbackColumns + ` FROM ticket_feedback WHERE ticket_id=$1`
	var fb domain.TicketFeedback
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&fb.ID,
		&fb.TicketID,
		&fb.CreatedBy,
		&fb.Rating,
		&fb.Feedback,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *feedbackRepository) Submit(ctx context.Context, ticketID string, rating int, feedback *string) (*domain.TicketFeedback, error) {
	const query = `
        UPDATE ticket_feedback SET rating=$1, feedback=$2, updated_at=NOW()
        WHERE ticket_id=$3 AND rating IS NULL
        RETURNING ` + feedbackColumns
	var fb domain.TicketFeedback
	if err := r.pool.QueryRow(ctx, query, rating, feedback, ticketID).Scan(
		&fb.ID,
		&fb.TicketID,
		&fb.CreatedBy,
		&fb.Rating,
		&fb.Feedback,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, pgx.ErrNoRows
		}
		return nil, err
	}
	return &fb, nil
}
