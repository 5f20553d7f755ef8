package mention

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/repository"
)

// Model-facing record shapes. Sensitive identity fields never appear here.

// TicketRecord is the expansion view of a ticket.
type TicketRecord struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Channel     string                `json:"channel"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  *string               `json:"assigned_to,omitempty"`
	TeamID      *string               `json:"team_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// MessageRecord is the expansion view of a ticket message.
type MessageRecord struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonRecord is the expansion view of a person (customer or employee).
type PersonRecord struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Role  domain.PersonRole `json:"role"`
}

// TemplateRecord is the expansion view of a message template.
type TemplateRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TeamRecord is the expansion view of a team.
type TeamRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func ticketLookup(repo repository.TicketRepository) lookup {
	return func(ctx context.Context, ids []string) ([]Resolved, error) {
		tickets, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make([]Resolved, 0, len(tickets))
		for _, t := range tickets {
			record := TicketRecord{
				ID:          t.ID,
				Subject:     t.Subject,
				Description: t.Description,
				Status:      t.Status,
				Priority:    t.Priority,
				Channel:     t.Channel,
				CreatedBy:   t.CreatedBy,
				AssignedTo:  t.AssignedTo,
				TeamID:      t.TeamID,
				CreatedAt:   t.CreatedAt,
			}
			resolved, err := newResolved(domain.KindTicket, t.ID, t.Subject, record)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}
		return result, nil
	}
}

func messageLookup(repo repository.MessageRepository) lookup {
	return func(ctx context.Context, ids []string) ([]Resolved, error) {
		messages, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make([]Resolved, 0, len(messages))
		for _, m := range messages {
			record := MessageRecord{
				ID:        m.ID,
				TicketID:  m.TicketID,
				AuthorID:  m.AuthorID,
				Body:      m.Body,
				CreatedAt: m.CreatedAt,
			}
			resolved, err := newResolved(domain.KindMessage, m.ID, m.Body, record)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}
		return result, nil
	}
}

func personLookup(repo repository.PersonRepository, kind domain.EntityKind) lookup {
	return func(ctx context.Context, ids []string) ([]Resolved, error) {
		persons, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make([]Resolved, 0, len(persons))
		for _, p := range persons {
			record := PersonRecord{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role}
			resolved, err := newResolved(kind, p.ID, p.Name, record)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}
		return result, nil
	}
}

func templateLookup(repo repository.TemplateRepository) lookup {
	return func(ctx context.Context, ids []string) ([]Resolved, error) {
		templates, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make([]Resolved, 0, len(templates))
		for _, tpl := range templates {
			record := TemplateRecord{ID: tpl.ID, Name: tpl.Name, Subject: tpl.Subject, Body: tpl.Body}
			resolved, err := newResolved(domain.KindTemplate, tpl.ID, tpl.Name, record)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}
		return result, nil
	}
}

func teamLookup(repo repository.TeamRepository) lookup {
	return func(ctx context.Context, ids []string) ([]Resolved, error) {
		teams, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make([]Resolved, 0, len(teams))
		for _, team := range teams {
			record := TeamRecord{ID: team.ID, Name: team.Name, Description: team.Description}
			resolved, err := newResolved(domain.KindTeam, team.ID, team.Name, record)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}
		return result, nil
	}
}

func newResolved(kind domain.EntityKind, id, label string, record any) (Resolved, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{
		Ref:    domain.EntityRef{Kind: kind, ID: id},
		Label:  label,
		Record: raw,
	}, nil
}
