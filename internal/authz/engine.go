package authz

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/repository"
)

// Action enumerates the mutations the engine rules on.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Engine decides allow/deny for ticket mutations. Decisions are never
// persisted; every attempt is evaluated fresh against the current snapshot.
type Engine struct {
	teams  repository.TeamRepository
	logger *zap.Logger
}

// NewEngine constructs the engine.
func NewEngine(teams repository.TeamRepository, logger *zap.Logger) *Engine {
	return &Engine{teams: teams, logger: logger}
}

// CanMutate evaluates the rules in precedence order, first match wins:
//  1. create: any authenticated actor.
//  2. delete: admins only.
//  3. update: admin, assignee, creator, or member of the ticket's team.
//
// A membership lookup failure denies: the engine fails closed.
func (e *Engine) CanMutate(ctx context.Context, actor *domain.Person, action Action, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}

	switch action {
	case ActionCreate:
		return true
	case ActionDelete:
		return actor.IsAdmin()
	case ActionUpdate:
		// falls through to the relationship rules below
	default:
		return false
	}

	if ticket == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if ticket.AssignedTo != nil && *ticket.AssignedTo == actor.ID {
		return true
	}
	if ticket.CreatedBy == actor.ID {
		return true
	}
	if ticket.TeamID == nil {
		return false
	}

	member, err := e.teams.IsMember(ctx, *ticket.TeamID, actor.ID)
	if err != nil {
		if e.logger != nil {
			e.logger.Error("team membership lookup failed, denying",
				zap.String("team_id", *ticket.TeamID),
				zap.String("person_id", actor.ID),
				zap.Error(err))
		}
		return false
	}
	return member
}
