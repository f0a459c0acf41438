package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reworn/storefront/internal/domain/auth"
)

const getSessionByHashSQL = `SELECT id, token_hash, user_id, name, scopes
	FROM sessions WHERE token_hash = $1 AND active = TRUE`

var _ auth.Repository = (*SessionRepository)(nil)

// SessionRepository provides session lookups backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash looks up an active session by its HMAC-SHA256 token hash.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	var s auth.Session
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).Scan(
		&s.ID, &s.TokenHash, &s.UserID, &s.Name, &s.Scopes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("finding session by hash: %w", err)
	}
	return &s, nil
}
