package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"loandesk/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `token_hash, user_id, company_id, fp_ip, fp_user_agent, issued_at, expires_at, revoked_at, flagged, last_seen_at`

// GetByTokenHash returns the session for the given token hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE token_hash = $1`
	var (
		s          domain.Session
		revokedAt  sql.NullTime
		lastSeenAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(
		&s.TokenHash, &s.UserID, &s.CompanyID, &s.Fingerprint.IP, &s.Fingerprint.UserAgent,
		&s.IssuedAt, &s.ExpiresAt, &revokedAt, &s.Flagged, &lastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.RevokedAt = nullTimeToPtr(revokedAt)
	s.LastSeenAt = nullTimeToPtr(lastSeenAt)
	return &s, nil
}

// Create persists the session to the database. The session must have TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	const q = `INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q,
		s.TokenHash, s.UserID, s.CompanyID, s.Fingerprint.IP, s.Fingerprint.UserAgent,
		s.IssuedAt, s.ExpiresAt, timeToNullTime(s.RevokedAt), s.Flagged, timeToNullTime(s.LastSeenAt))
	return err
}

// ExtendExpiry moves the session's expiry forward and records the refresh as
// activity. The WHERE guard keeps the write monotone under concurrent refreshes.
func (r *PostgresRepository) ExtendExpiry(ctx context.Context, tokenHash string, expiresAt, at time.Time) error {
	const q = `UPDATE sessions SET expires_at = $2, last_seen_at = $3
		WHERE token_hash = $1 AND expires_at < $2`
	_, err := r.db.ExecContext(ctx, q, tokenHash, expiresAt, at)
	return err
}

// Revoke marks the session as revoked. Idempotent: an already-revoked session
// keeps its original revocation time.
func (r *PostgresRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	const q = `UPDATE sessions SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, tokenHash, at)
	return err
}

// RevokeAllByUser revokes every not-yet-revoked session of the given user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	const q = `UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, userID, at)
	return err
}

// SetFlagged records whether the session was seen from a mismatched device.
func (r *PostgresRepository) SetFlagged(ctx context.Context, tokenHash string, flagged bool) error {
	const q = `UPDATE sessions SET flagged = $2 WHERE token_hash = $1`
	_, err := r.db.ExecContext(ctx, q, tokenHash, flagged)
	return err
}

// UpdateLastSeen sets the session's last-seen timestamp.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, tokenHash string, at time.Time) error {
	const q = `UPDATE sessions SET last_seen_at = $2 WHERE token_hash = $1`
	_, err := r.db.ExecContext(ctx, q, tokenHash, at)
	return err
}

// Delete removes the session row. Used by lazy purge; missing rows are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpiredBefore removes every session whose expiry predates cutoff and
// returns the number of rows purged.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
