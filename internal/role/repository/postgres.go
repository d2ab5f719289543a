package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"loandesk/internal/role/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a role repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the role for id with its permission set, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	const q = `SELECT id, company_id, name, created_at, updated_at FROM roles WHERE id = $1`
	var role domain.Role
	err := r.db.QueryRowContext(ctx, q, id).Scan(&role.ID, &role.CompanyID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	perms, err := r.loadPermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return &role, nil
}

// ListByCompany returns the company's roles ordered by name, optionally
// filtered by a case-insensitive substring match on name.
func (r *PostgresRepository) ListByCompany(ctx context.Context, companyID, search string) ([]*domain.Role, error) {
	const q = `SELECT id, company_id, name, created_at, updated_at
		FROM roles
		WHERE company_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q, companyID, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.CompanyID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, role := range out {
		perms, err := r.loadPermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		role.Permissions = perms
	}
	return out, nil
}

// Create persists the role and its permission set in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, role *domain.Role) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO roles (id, company_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, q, role.ID, role.CompanyID, role.Name, role.CreatedAt, role.UpdatedAt); err != nil {
		return err
	}
	if err := insertPermissions(ctx, tx, role.ID, role.Permissions); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdatePermissions replaces the role's permission set in one transaction.
func (r *PostgresRepository) UpdatePermissions(ctx context.Context, roleID string, perms domain.PermissionSet, updatedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE roles SET updated_at = $2 WHERE id = $1`, roleID, updatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	if err := insertPermissions(ctx, tx, roleID, perms); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPermissions(ctx context.Context, tx *sql.Tx, roleID string, perms domain.PermissionSet) error {
	const q = `INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2)`
	for _, k := range perms.Keys() {
		if _, err := tx.ExecContext(ctx, q, roleID, string(k)); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) loadPermissions(ctx context.Context, roleID string) (domain.PermissionSet, error) {
	const q = `SELECT permission FROM role_permissions WHERE role_id = $1`
	rows, err := r.db.QueryContext(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := make(domain.PermissionSet)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		perms[domain.Key(k)] = struct{}{}
	}
	return perms, rows.Err()
}
