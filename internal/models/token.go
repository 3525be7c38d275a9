package models

import (
	"time"

	"github.com/google/uuid"
)

// Stored refresh token. Only the SHA-256 of the raw token is persisted,
// the raw value leaves the service exactly once: in the login/refresh response.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // nil if token not revoked
	IPAddress string
	UserAgent string
}

// Token is valid if it not revoked and not expired yet
func (t RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
