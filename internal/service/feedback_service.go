package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/repository"
	util "github.com/spec-kit/crm-agent/pkg/util"
)

// FeedbackService lets the ticket's original creator fill in the feedback
// record the state machine created. The record is updated exactly once.
type FeedbackService struct {
	feedback repository.FeedbackRepository
}

// NewFeedbackService constructs the service.
func NewFeedbackService(feedback repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{feedback: feedback}
}

// GetForTicket returns the feedback record for a ticket, if any.
func (s *FeedbackService) GetForTicket(ctx context.Context, ticketID string) (*domain.TicketFeedback, error) {
	fb, err := s.feedback.GetByTicket(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("feedback", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	return fb, nil
}

// Submit records the creator's rating and optional comment.
func (s *FeedbackService) Submit(ctx context.Context, actor *domain.Person, ticketID string, rating int, comment *string) (*domain.TicketFeedback, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor identity required")
	}
	if rating < 1 || rating > 5 {
		return nil, util.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}

	existing, err := s.GetForTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if existing.CreatedBy != actor.ID {
		return nil, util.NewForbidden("only the ticket creator can submit feedback")
	}
	if existing.Submitted() {
		return nil, util.NewConflict("feedback already submitted", map[string]any{"ticket_id": ticketID})
	}

	fb, err := s.feedback.Submit(ctx, ticketID, rating, comment)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewConflict("feedback already submitted", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	return fb, nil
}
