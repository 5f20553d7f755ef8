package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// TemplateRepository manages persistence for message templates.
type TemplateRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.MessageTemplate, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository constructs repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

func (r *templateRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.MessageTemplate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
        SELECT id, name, subject, body, created_at, updated_at
        FROM message_templates WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MessageTemplate
	for rows.Next() {
		var tpl domain.MessageTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Subject, &tpl.Body, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}
