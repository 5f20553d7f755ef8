package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/authz"
	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/events"
	"github.com/spec-kit/crm-agent/internal/repository"
	util "github.com/spec-kit/crm-agent/pkg/util"
)

// TicketService is the single write path for tickets: every mutation, whether
// it originates from a direct API call or an agent tool, goes through here so
// the status side effects fire exactly once per transition.
type TicketService struct {
	tickets    repository.TicketRepository
	feedback   repository.FeedbackRepository
	authorizer *authz.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	FeedbackRepo repository.FeedbackRepository
	Authorizer   *authz.Engine
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Status      domain.TicketStatus
	Priority    domain.TicketPriority
	Channel     string
	TeamID      *string
	AssignedTo  *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		feedback:   deps.FeedbackRepo,
		authorizer: deps.Authorizer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket creates a ticket on behalf of the actor. Status defaults to
// open and priority to medium; assigned_to and team_id are unrestricted on
// creation since no prior record exists.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Person, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor identity required")
	}
	if !s.authorizer.CanMutate(ctx, actor, authz.ActionCreate, nil) {
		return nil, util.NewForbidden("not allowed to create tickets")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, util.NewValidationError("subject required", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		Channel:     input.Channel,
		CreatedBy:   actor.ID,
		AssignedTo:  input.AssignedTo,
		TeamID:      input.TeamID,
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Channel == "" {
		ticket.Channel = "web"
	}
	if !domain.ValidStatus(ticket.Status) {
		return nil, util.NewValidationError("invalid status", map[string]any{"status": ticket.Status})
	}
	if !domain.ValidPriority(ticket.Priority) {
		return nil, util.NewValidationError("invalid priority", map[string]any{"priority": ticket.Priority})
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Status:   ticket.Status,
			Priority: ticket.Priority,
			TeamID:   ticket.TeamID,
		},
	})
	// a ticket born resolved/closed still owes its feedback record
	if domain.RequestsFeedback(ticket.Status) {
		s.ensureFeedbackRecord(ctx, ticket, actor.ID)
	}
	return ticket, nil
}

// GetTicket fetches a ticket the actor is allowed to see. Visibility follows
// the update rule set: creator, assignee, team member, or admin.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Person, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor identity required")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authorizer.CanMutate(ctx, actor, authz.ActionUpdate, ticket) {
		return nil, util.NewForbidden("not allowed to view this ticket")
	}
	return ticket, nil
}

// ApplyUpdate merges the patch into the ticket: load, authorize, validate,
// persist, then fire the status side effects when the stored status actually
// changed. Storage failures abort before any side effect runs.
func (s *TicketService) ApplyUpdate(ctx context.Context, actor *domain.Person, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor identity required")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authorizer.CanMutate(ctx, actor, authz.ActionUpdate, ticket) {
		return nil, util.NewForbidden("not allowed to update this ticket")
	}

	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		return nil, util.NewValidationError("invalid status", map[string]any{"status": *patch.Status})
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		return nil, util.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
	}

	oldStatus := ticket.Status
	fields := mergePatch(ticket, patch)
	if len(fields) == 0 {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketUpdatedPayload{Fields: fields},
	})

	if patch.Status != nil && *patch.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				CreatedBy: ticket.CreatedBy,
			},
		})
		if domain.RequestsFeedback(ticket.Status) {
			s.ensureFeedbackRecord(ctx, ticket, actor.ID)
		}
	}
	return ticket, nil
}

// DeleteTicket removes a ticket; admin only. Feedback cascades with it.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.Person, ticketID string) error {
	if actor == nil {
		return util.NewUnauthorized("actor identity required")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !s.authorizer.CanMutate(ctx, actor, authz.ActionDelete, ticket) {
		return util.NewForbidden("only admins can delete tickets")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return util.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		ActorID:  actor.ID,
	})
	return nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// mergePatch applies only the fields present in patch and returns their names.
func mergePatch(ticket *domain.Ticket, patch domain.TicketPatch) []string {
	var fields []string
	if patch.Subject != nil {
		ticket.Subject = strings.TrimSpace(*patch.Subject)
		fields = append(fields, "subject")
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
		fields = append(fields, "description")
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
		fields = append(fields, "status")
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
		fields = append(fields, "priority")
	}
	if patch.Channel != nil {
		ticket.Channel = *patch.Channel
		fields = append(fields, "channel")
	}
	if patch.AssignedTo != nil {
		ticket.AssignedTo = patch.AssignedTo
		fields = append(fields, "assigned_to")
	}
	if patch.TeamID != nil {
		ticket.TeamID = patch.TeamID
		fields = append(fields, "team_id")
	}
	return fields
}

// ensureFeedbackRecord performs the idempotent insert keyed by ticket id.
// Failures are logged and swallowed: the mutation already succeeded.
func (s *TicketService) ensureFeedbackRecord(ctx context.Context, ticket *domain.Ticket, actorID string) {
	inserted, err := s.feedback.InsertIfAbsent(ctx, ticket.ID, ticket.CreatedBy)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("feedback record insert failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
		return
	}
	if inserted {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventFeedbackCreated,
			TicketID: ticket.ID,
			ActorID:  actorID,
			Payload: events.FeedbackCreatedPayload{
				TicketID:  ticket.ID,
				CreatedBy: ticket.CreatedBy,
			},
		})
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
