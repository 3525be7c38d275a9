package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/contactbox/internal/apperrors"
	"github.com/nkiryanov/contactbox/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, revoked_at, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, user_id, token_hash, created_at, expires_at, revoked_at, ip_address, user_agent
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.CreatedAt,
		token.ExpiresAt,
		token.RevokedAt,
		nullIfEmpty(token.IPAddress),
		nullIfEmpty(token.UserAgent),
	)
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getTokenByHash = `-- name: GetRefreshTokenByHash
SELECT id, user_id, token_hash, created_at, expires_at, revoked_at, ip_address, user_agent
FROM refresh_tokens
WHERE token_hash = $1
`

// Get token by its hash
// Returns the row even if it expired or revoked already
func (r *RefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getTokenByHash, tokenHash)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeToken = `-- name: RevokeRefreshToken
UPDATE refresh_tokens
SET revoked_at = $2
WHERE token_hash = $1 AND revoked_at IS NULL
`

// Set revoked_at if it not set yet
// Idempotent: absent or already revoked tokens are a no-op, not an error.
// The returned flag tells whether this call set revoked_at, which settles
// the race between two concurrent rotations of the same token: the update
// touches the row only when revoked_at was still NULL, so exactly one
// caller sees an affected row.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx, revokeToken, tokenHash, now)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

const deleteStaleTokens = `-- name: DeleteStaleRefreshTokens
DELETE FROM refresh_tokens
WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $2)
`

// Delete tokens that expired before now, plus revoked tokens older than the
// retention window even if they have not expired yet. That is the intended
// retention policy, not an accident of the predicate.
func (r *RefreshTokenRepo) DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteStaleTokens, now, now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	var ip, ua *string

	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &ip, &ua)
	if ip != nil {
		t.IPAddress = *ip
	}
	if ua != nil {
		t.UserAgent = *ua
	}
	return t, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
