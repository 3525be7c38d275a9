package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/contactbox/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with same username or email exists must return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, email string, hashedPassword string) (models.User, error)

	// Get user by id, exact username, or login (username or email)
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token in repository
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the token with given hash even if it expired or revoked already
	// If no row matches must return apperrors.ErrRefreshTokenNotFound
	GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error)

	// Set revoked_at on the matching row
	// Idempotent: already revoked or absent tokens are not an error.
	// Reports whether this call actually performed the revocation, so
	// concurrent revokes of the same token have exactly one winner.
	Revoke(ctx context.Context, tokenHash string, now time.Time) (revoked bool, err error)

	// Delete tokens that expired before now or were revoked before now-retention
	// Returns number of deleted rows. Safe to run repeatedly.
	DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

// Partial contact update. Nil fields remain unchanged.
type UpdateContact struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	Birthday       *time.Time
	AdditionalInfo *string
}

// Contact repository interface
// Every method is scoped to the owning user: rows of other users are invisible
type ContactRepo interface {
	// Create contact
	// If contact with same email or phone exists for the user must return apperrors.ErrContactAlreadyExists
	Create(ctx context.Context, contact models.Contact) (models.Contact, error)

	List(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Contact, error)

	// If contact not found (or owned by different user) must return apperrors.ErrContactNotFound
	Get(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) (models.Contact, error)
	Update(ctx context.Context, userID uuid.UUID, contactID uuid.UUID, upd UpdateContact) (models.Contact, error)
	Delete(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) error

	// Case insensitive substring search over first name, last name and email
	Search(ctx context.Context, userID uuid.UUID, query string, limit int, offset int) ([]models.Contact, error)

	// Contacts whose next birthday falls in [today, today+days]
	UpcomingBirthdays(ctx context.Context, userID uuid.UUID, days int) ([]models.Contact, error)
}

// Storage combines repositories backed by the same database handle
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Contact() ContactRepo

	// Run fn inside a database transaction
	// The passed storage operates on the transaction; rollback on error
	InTx(ctx context.Context, fn func(Storage) error) error
}
