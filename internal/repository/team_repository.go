package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// TeamRepository manages persistence for teams and team membership.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Team, error)
	IsMember(ctx context.Context, teamID, personID string) (bool, error)
	AddMember(ctx context.Context, teamID, personID string) error
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

const teamColumns = `id, name, description, is_active, created_at, updated_at`

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (name, description, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.Name,
		team.Description,
		team.IsActive,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE id=$1`
	var team domain.Team
	if err := scanTeam(r.pool.QueryRow(ctx, query, id), &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Team, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := scanTeam(rows, &team); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}

func (r *teamRepository) IsMember(ctx context.Context, teamID, personID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id=$1 AND person_id=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, teamID, personID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *teamRepository) AddMember(ctx context.Context, teamID, personID string) error {
	const query = `
        INSERT INTO team_members (team_id, person_id)
        VALUES ($1,$2)
        ON CONFLICT (team_id, person_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, teamID, personID)
	return err
}

func scanTeam(row pgx.Row, team *domain.Team) error {
	return row.Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.IsActive,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
}
