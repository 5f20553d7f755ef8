package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-agent/internal/auth"
	"github.com/spec-kit/crm-agent/internal/config"
	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/repository"
	util "github.com/spec-kit/crm-agent/pkg/util"
)

// AuthService authenticates persons and issues access tokens. Session
// issuance lives at the edge; the core only ever sees the loaded actor.
type AuthService struct {
	persons repository.PersonRepository
	tokens  *auth.TokenManager
	cfg     config.AuthConfig
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, persons repository.PersonRepository) *AuthService {
	return &AuthService{
		persons: persons,
		tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		cfg:     cfg,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries an issued token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Person    *domain.Person
}

// Login verifies credentials and issues a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, util.NewValidationError("email and password required", nil)
	}

	person, err := s.persons.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewUnauthorized("invalid credentials")
		}
		return nil, util.MapError(err)
	}
	if err := auth.ComparePassword(person.PasswordHash, password); err != nil {
		return nil, util.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(person)
	if err != nil {
		return nil, util.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Person: person}, nil
}
