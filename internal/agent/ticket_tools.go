package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/mention"
	"github.com/spec-kit/crm-agent/internal/service"
)

// TicketTools builds the three ticket mutation tools around the shared
// state machine service.
func TicketTools(tickets *service.TicketService) Tools {
	return Tools{
		&createTicketTool{tickets: tickets},
		&updateTicketTool{tickets: tickets},
		&deleteTicketTool{tickets: tickets},
	}
}

var statusEnum = []string{
	string(domain.TicketStatusOpen),
	string(domain.TicketStatusPending),
	string(domain.TicketStatusResolved),
	string(domain.TicketStatusClosed),
}

var priorityEnum = []string{
	string(domain.TicketPriorityLow),
	string(domain.TicketPriorityMedium),
	string(domain.TicketPriorityHigh),
	string(domain.TicketPriorityUrgent),
}

type createTicketTool struct {
	tickets *service.TicketService
}

func (t *createTicketTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "create_ticket",
		Description: "Create a new support ticket.",
		Properties: map[string]jsonschema.Definition{
			"subject": {
				Type:        jsonschema.String,
				Description: "Short summary of the issue",
			},
			"description": {
				Type:        jsonschema.String,
				Description: "Full description of the issue",
			},
			"priority": {
				Type: jsonschema.String,
				Enum: priorityEnum,
			},
			"status": {
				Type: jsonschema.String,
				Enum: statusEnum,
			},
			"channel": {
				Type:        jsonschema.String,
				Description: "Channel the request came in through, e.g. web, email, phone",
			},
			"team_id": {
				Type:        jsonschema.String,
				Description: "Id of the team to route the ticket to",
			},
			"assigned_to": {
				Type:        jsonschema.String,
				Description: "Id of the person to assign the ticket to",
			},
		},
		Required: []string{"subject"},
	}
}

func (t *createTicketTool) Run(ctx context.Context, actor *domain.Person, params ToolParams) (string, error) {
	var args struct {
		Subject     string  `json:"subject"`
		Description string  `json:"description"`
		Priority    string  `json:"priority"`
		Status      string  `json:"status"`
		Channel     string  `json:"channel"`
		TeamID      *string `json:"team_id"`
		AssignedTo  *string `json:"assigned_to"`
	}
	if err := params.Unmarshal(&args); err != nil {
		return "", err
	}

	ticket, err := t.tickets.CreateTicket(ctx, actor, service.TicketCreateInput{
		Subject:     args.Subject,
		Description: args.Description,
		Status:      domain.TicketStatus(args.Status),
		Priority:    domain.TicketPriority(args.Priority),
		Channel:     args.Channel,
		TeamID:      emptyToNil(args.TeamID),
		AssignedTo:  emptyToNil(args.AssignedTo),
	})
	if err != nil {
		return "", err
	}
	return ticketResult("Created ticket", ticket)
}

type updateTicketTool struct {
	tickets *service.TicketService
}

func (t *updateTicketTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "update_ticket",
		Description: "Update fields of an existing support ticket. Only the provided fields change.",
		Properties: map[string]jsonschema.Definition{
			"ticket_id": {
				Type:        jsonschema.String,
				Description: "Id of the ticket to update",
			},
			"subject": {
				Type: jsonschema.String,
			},
			"description": {
				Type: jsonschema.String,
			},
			"priority": {
				Type: jsonschema.String,
				Enum: priorityEnum,
			},
			"status": {
				Type: jsonschema.String,
				Enum: statusEnum,
			},
			"team_id": {
				Type: jsonschema.String,
			},
			"assigned_to": {
				Type: jsonschema.String,
			},
		},
		Required: []string{"ticket_id"},
	}
}

func (t *updateTicketTool) Run(ctx context.Context, actor *domain.Person, params ToolParams) (string, error) {
	var args struct {
		TicketID    string  `json:"ticket_id"`
		Subject     *string `json:"subject"`
		Description *string `json:"description"`
		Priority    *string `json:"priority"`
		Status      *string `json:"status"`
		TeamID      *string `json:"team_id"`
		AssignedTo  *string `json:"assigned_to"`
	}
	if err := params.Unmarshal(&args); err != nil {
		return "", err
	}
	if args.TicketID == "" {
		return "", fmt.Errorf("ticket_id is required")
	}

	patch := domain.TicketPatch{
		Subject:     args.Subject,
		Description: args.Description,
		TeamID:      emptyToNil(args.TeamID),
		AssignedTo:  emptyToNil(args.AssignedTo),
	}
	if args.Status != nil {
		status := domain.TicketStatus(*args.Status)
		patch.Status = &status
	}
	if args.Priority != nil {
		priority := domain.TicketPriority(*args.Priority)
		patch.Priority = &priority
	}

	ticket, err := t.tickets.ApplyUpdate(ctx, actor, args.TicketID, patch)
	if err != nil {
		return "", err
	}
	return ticketResult("Updated ticket", ticket)
}

type deleteTicketTool struct {
	tickets *service.TicketService
}

func (t *deleteTicketTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "delete_ticket",
		Description: "Permanently delete a support ticket. Admins only.",
		Properties: map[string]jsonschema.Definition{
			"ticket_id": {
				Type:        jsonschema.String,
				Description: "Id of the ticket to delete",
			},
		},
		Required: []string{"ticket_id"},
	}
}

func (t *deleteTicketTool) Run(ctx context.Context, actor *domain.Person, params ToolParams) (string, error) {
	var args struct {
		TicketID string `json:"ticket_id"`
	}
	if err := params.Unmarshal(&args); err != nil {
		return "", err
	}
	if args.TicketID == "" {
		return "", fmt.Errorf("ticket_id is required")
	}

	if err := t.tickets.DeleteTicket(ctx, actor, args.TicketID); err != nil {
		return "", err
	}
	result, err := json.Marshal(map[string]any{
		"success": true,
		"message": fmt.Sprintf("ticket %s deleted", args.TicketID),
	})
	if err != nil {
		return "", err
	}
	return string(result), nil
}

// ticketResult renders the mutated ticket for the model, leading with the
// canonical tag so the final answer can reference the ticket inline.
func ticketResult(verb string, ticket *domain.Ticket) (string, error) {
	record, err := json.Marshal(map[string]any{
		"id":          ticket.ID,
		"subject":     ticket.Subject,
		"description": ticket.Description,
		"status":      ticket.Status,
		"priority":    ticket.Priority,
		"channel":     ticket.Channel,
		"assigned_to": ticket.AssignedTo,
		"team_id":     ticket.TeamID,
	})
	if err != nil {
		return "", err
	}
	tag := mention.Tag(domain.EntityRef{Kind: domain.KindTicket, ID: ticket.ID})
	return fmt.Sprintf("%s %s: %s", verb, tag, record), nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
