package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// PersonRepository defines persistence access for the unified identity store.
type PersonRepository interface {
	Create(ctx context.Context, person *domain.Person) error
	GetByID(ctx context.Context, id string) (*domain.Person, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Person, error)
	GetByEmail(ctx context.Context, email string) (*domain.Person, error)
}

type personRepository struct {
	pool *pgxpool.Pool
}

// NewPersonRepository returns a Postgres-backed implementation.
func NewPersonRepository(pool *pgxpool.Pool) PersonRepository {
	return &personRepository{pool: pool}
}

const personColumns = `id, name, email, password_hash, role, created_at, updated_at`

func (r *personRepository) Create(ctx context.Context, person *domain.Person) error {
	const query = `
        INSERT INTO persons (name, email, password_hash, role)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		person.Name,
		person.Email,
		person.PasswordHash,
		person.Role,
	).Scan(&person.ID, &person.CreatedAt, &person.UpdatedAt)
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	const query = `SELECT ` + personColumns + ` FROM persons WHERE id=$1`
	var person domain.Person
	if err := scanPerson(r.pool.QueryRow(ctx, query, id), &person); err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *personRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + personColumns + ` FROM persons WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Person
	for rows.Next() {
		var person domain.Person
		if err := scanPerson(rows, &person); err != nil {
			return nil, err
		}
		result = append(result, person)
	}
	return result, rows.Err()
}

func (r *personRepository) GetByEmail(ctx context.Context, email string) (*domain.Person, error) {
	const query = `SELECT ` + personColumns + ` FROM persons WHERE email=$1`
	var person domain.Person
	if err := scanPerson(r.pool.QueryRow(ctx, query, email), &person); err != nil {
		return nil, err
	}
	return &person, nil
}

func scanPerson(row pgx.Row, person *domain.Person) error {
	return row.Scan(
		&person.ID,
		&person.Name,
		&person.Email,
		&person.PasswordHash,
		&person.Role,
		&person.CreatedAt,
		&person.UpdatedAt,
	)
}
