package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/contactbox/internal/models"
	"github.com/nkiryanov/contactbox/internal/repository"
	"github.com/nkiryanov/contactbox/internal/service/auth"
)

// Minimal user directory: creation and lookups
// Consumed by the auth service, which owns credentials and tokens
type UserService struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo
}

func NewService(hasher auth.PasswordHasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
	}
}

func (s *UserService) CreateUser(ctx context.Context, username string, email string, password string) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, username, email, hash)
	if err != nil {
		// Keep apperrors.ErrUserAlreadyExists recognizable for callers
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return s.userRepo.GetUserByUsername(ctx, username)
}

// Lookup by username or email
func (s *UserService) GetByLogin(ctx context.Context, login string) (models.User, error) {
	return s.userRepo.GetUserByLogin(ctx, login)
}
