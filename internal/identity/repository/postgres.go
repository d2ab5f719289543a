package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"loandesk/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, company_id, role_id, username, email, phone, display_name, avatar_ref, password_hash, status, created_at, updated_at`

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.get(ctx, `SELECT `+identityColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername returns the identity for username (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.get(ctx, `SELECT `+identityColumns+` FROM users WHERE lower(username) = $1`, strings.ToLower(username))
}

// Create persists the identity to the database. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	const q = `INSERT INTO users (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, q,
		i.ID, i.CompanyID, i.RoleID, i.Username, i.Email, i.Phone,
		i.DisplayName, i.AvatarRef, i.PasswordHash, i.Status, i.CreatedAt, i.UpdatedAt)
	return err
}

// Update replaces the stored identity by ID.
func (r *PostgresRepository) Update(ctx context.Context, i *domain.Identity) error {
	const q = `UPDATE users SET company_id = $2, role_id = $3, username = $4, email = $5,
		phone = $6, display_name = $7, avatar_ref = $8, status = $9, updated_at = $10
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q,
		i.ID, i.CompanyID, i.RoleID, i.Username, i.Email, i.Phone,
		i.DisplayName, i.AvatarRef, i.Status, i.UpdatedAt)
	return err
}

// UpdatePasswordHash replaces the stored credential hash for id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, passwordHash, updatedAt)
	return err
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	var i domain.Identity
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&i.ID, &i.CompanyID, &i.RoleID, &i.Username, &i.Email, &i.Phone,
		&i.DisplayName, &i.AvatarRef, &i.PasswordHash, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}
