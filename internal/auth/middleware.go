package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/repository"
	apperrors "github.com/spec-kit/crm-agent/pkg/util"
)

const actorKey = "auth_actor"

// AuthMiddleware validates bearer tokens and loads the acting person. Every
// downstream component receives the actor as an explicit parameter; nothing
// reads ambient session state.
type AuthMiddleware struct {
	tokens  *TokenManager
	persons repository.PersonRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, persons repository.PersonRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, persons: persons}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	person, err := m.persons.GetByID(c.Context(), claims.PersonID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("person not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(actorKey, person)
	return c.Next()
}

// ActorFromContext retrieves the authenticated person.
func ActorFromContext(c *fiber.Ctx) (*domain.Person, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return nil, false
	}
	person, ok := val.(*domain.Person)
	return person, ok
}
