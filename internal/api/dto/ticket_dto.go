package dto

import (
	"time"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Channel     string                `json:"channel"`
	TeamID      *string               `json:"team_id"`
	AssignedTo  *string               `json:"assigned_to"`
}

// PatchTicketRequest payload; absent fields stay unchanged.
type PatchTicketRequest struct {
	Subject     *string                `json:"subject"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	Channel     *string                `json:"channel"`
	TeamID      *string                `json:"team_id"`
	AssignedTo  *string                `json:"assigned_to"`
}

// Patch converts the request to the domain patch.
func (r PatchTicketRequest) Patch() domain.TicketPatch {
	return domain.TicketPatch{
		Subject:     r.Subject,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Channel:     r.Channel,
		TeamID:      r.TeamID,
		AssignedTo:  r.AssignedTo,
	}
}

// TicketResponse is the API view of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Channel     string                `json:"channel"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  *string               `json:"assigned_to"`
	TeamID      *string               `json:"team_id"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		Channel:     ticket.Channel,
		CreatedBy:   ticket.CreatedBy,
		AssignedTo:  ticket.AssignedTo,
		TeamID:      ticket.TeamID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// SubmitFeedbackRequest payload.
type SubmitFeedbackRequest struct {
	Rating   int     `json:"rating"`
	Feedback *string `json:"feedback"`
}

// FeedbackResponse is the API view of a feedback record.
type FeedbackResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	CreatedBy string    `json:"created_by"`
	Rating    *int      `json:"rating"`
	Feedback  *string   `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFeedbackResponse maps a domain feedback record.
func NewFeedbackResponse(fb *domain.TicketFeedback) FeedbackResponse {
	return FeedbackResponse{
		ID:        fb.ID,
		TicketID:  fb.TicketID,
		CreatedBy: fb.CreatedBy,
		Rating:    fb.Rating,
		Feedback:  fb.Feedback,
		CreatedAt: fb.CreatedAt,
		UpdatedAt: fb.UpdatedAt,
	}
}
