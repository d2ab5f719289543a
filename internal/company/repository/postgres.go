package repository

import (
	"context"
	"database/sql"
	"errors"

	"loandesk/internal/company/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a company repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the company for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	const q = `SELECT id, name, status, created_at FROM companies WHERE id = $1`
	var c domain.Company
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create persists the company to the database. The company must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Company) error {
	const q = `INSERT INTO companies (id, name, status, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.Name, c.Status, c.CreatedAt)
	return err
}
