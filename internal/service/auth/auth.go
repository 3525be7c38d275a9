package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/contactbox/internal/apperrors"
	"github.com/nkiryanov/contactbox/internal/models"
	"github.com/nkiryanov/contactbox/internal/repository"
	"github.com/nkiryanov/contactbox/internal/service/auth/tokenmanager"
)

const (
	accessHeaderName = "Authorization"
	accessAuthScheme = "Bearer"
)

// User directory the auth service relies on
// Implemented by service/user.UserService
type UserDirectory interface {
	// Has to return apperrors.ErrUserAlreadyExists on duplicate username or email
	CreateUser(ctx context.Context, username string, email string, password string) (models.User, error)

	// Have to return apperrors.ErrUserNotFound if user absent
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByLogin(ctx context.Context, login string) (models.User, error)
}

// Denylist of logged out access tokens
type Denylist interface {
	Deny(ctx context.Context, access string, expiresAt time.Time) error
	IsDenied(ctx context.Context, access string) (bool, error)
}

type Config struct {
	// Hasher to use during login. If not set DefaultHasher is used
	Hasher PasswordHasher
}

type AuthService struct {
	// Codec to mint and verify access tokens and generate refresh tokens
	token *tokenmanager.TokenManager

	// hasher to compare user passwords
	hasher PasswordHasher

	// Digest compared when the user is not found, so absent user and wrong
	// password take about the same time
	dummyDigest string

	users    UserDirectory
	denylist Denylist

	// Storage for refresh token persistence and rotation transactions
	storage repository.Storage
}

func NewService(cfg Config, token *tokenmanager.TokenManager, users UserDirectory, denylist Denylist, storage repository.Storage) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	if token == nil || users == nil || denylist == nil || storage == nil {
		return nil, errors.New("token manager, user directory, denylist and storage must not be nil")
	}

	dummyDigest, err := hasher.Hash("no-such-password")
	if err != nil {
		return nil, fmt.Errorf("hasher failure. Err: %w", err)
	}

	return &AuthService{
		token:       token,
		hasher:      hasher,
		dummyDigest: dummyDigest,
		users:       users,
		denylist:    denylist,
		storage:     storage,
	}, nil
}

// Register new user
// Fails with apperrors.ErrUserAlreadyExists if username or email is taken
func (s *AuthService) Register(ctx context.Context, username string, email string, password string) (models.User, error) {
	return s.users.CreateUser(ctx, username, email, password)
}

// Authenticate user by username or email
// Always fails with apperrors.ErrUnauthorized: absent user and wrong password
// are not distinguishable from outside
func (s *AuthService) Authenticate(ctx context.Context, login string, password string) (models.User, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		_ = s.hasher.Compare(s.dummyDigest, password)
		return models.User{}, apperrors.ErrUnauthorized
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrUnauthorized
	}

	return user, nil
}

// Login authenticates the user and issues a fresh token pair
func (s *AuthService) Login(ctx context.Context, login string, password string, ip string, userAgent string) (models.TokenPair, error) {
	user, err := s.Authenticate(ctx, login, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.issuePair(ctx, s.storage.Refresh(), user, time.Now(), ip, userAgent)
}

// Refresh validates the presented refresh token, revokes it and issues a new pair
// Rotation is mandatory: the same token can not be refreshed twice.
// Of two concurrent calls with the same token at most one succeeds, the other
// observes apperrors.ErrRefreshTokenRevoked.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, ip string, userAgent string) (models.TokenPair, error) {
	now := time.Now()
	hash := tokenmanager.HashToken(rawRefresh)

	var pair models.TokenPair
	err := s.storage.InTx(ctx, func(txs repository.Storage) error {
		refreshRepo := txs.Refresh()

		token, err := refreshRepo.GetByHash(ctx, hash)
		if err != nil {
			return err
		}

		switch {
		case token.RevokedAt != nil:
			return fmt.Errorf("refresh failed: %w", apperrors.ErrRefreshTokenRevoked)
		case !now.Before(token.ExpiresAt):
			return fmt.Errorf("refresh failed: %w", apperrors.ErrRefreshTokenExpired)
		}

		// Revoke before issuing: the caller that actually flips revoked_at
		// wins the rotation, everyone else loses
		won, err := refreshRepo.Revoke(ctx, hash, now)
		if err != nil {
			return err
		}
		if !won {
			return fmt.Errorf("refresh failed: %w", apperrors.ErrRefreshTokenRevoked)
		}

		user, err := txs.User().GetUserByID(ctx, token.UserID)
		if err != nil {
			return err
		}

		pair, err = s.issuePair(ctx, refreshRepo, user, now, ip, userAgent)
		return err
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Logout denylists the access token for the rest of its lifetime and revokes
// the refresh token. Both are idempotent.
// Fails with apperrors.ErrAccessTokenInvalid if the access token never was valid.
func (s *AuthService) Logout(ctx context.Context, access string, rawRefresh string) error {
	claims, err := s.token.ParseAccess(access)
	if err != nil && !errors.Is(err, apperrors.ErrAccessTokenExpired) {
		// Expired tokens need no denylisting but their refresh token should
		// still die, so only outright invalid tokens are rejected
		return err
	}

	if err == nil {
		if err := s.denylist.Deny(ctx, access, claims.ExpiresAt.Time); err != nil {
			return err
		}
	}

	if _, err := s.storage.Refresh().Revoke(ctx, tokenmanager.HashToken(rawRefresh), time.Now()); err != nil {
		return err
	}

	return nil
}

// CurrentUser resolves the access token to a user
// Fails with apperrors.ErrUnauthorized on invalid, expired or denylisted token
// and when the subject no longer resolves to a user.
// Denylist or storage failures are returned as is so callers can tell an
// outage apart from a bad token
func (s *AuthService) CurrentUser(ctx context.Context, access string) (models.User, error) {
	claims, err := s.token.ParseAccess(access)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	denied, err := s.denylist.IsDenied(ctx, access)
	if err != nil {
		return models.User{}, fmt.Errorf("denylist check failed. Err: %w", err)
	}
	if denied {
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, apperrors.ErrAccessTokenRevoked)
	}

	user, err := s.users.GetByUsername(ctx, claims.Subject)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, fmt.Errorf("%w: subject not resolvable", apperrors.ErrUnauthorized)
	case err != nil:
		return models.User{}, fmt.Errorf("user lookup failed. Err: %w", err)
	}

	return user, nil
}

// UserFromRequest reads the bearer token and resolves the current user
func (s *AuthService) UserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	access, err := BearerToken(r)
	if err != nil {
		return models.User{}, err
	}

	return s.CurrentUser(ctx, access)
}

// BearerToken extracts the access token from the Authorization header
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(accessHeaderName)

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, accessAuthScheme) || token == "" {
		return "", fmt.Errorf("%w: no bearer token", apperrors.ErrUnauthorized)
	}

	return token, nil
}

// Issue access token and persist a new refresh token for the user
func (s *AuthService) issuePair(ctx context.Context, refreshRepo repository.RefreshTokenRepo, user models.User, now time.Time, ip string, userAgent string) (models.TokenPair, error) {
	access, err := s.token.MintAccess(user, now)
	if err != nil {
		return models.TokenPair{}, err
	}

	raw, token, err := s.token.NewRefresh(user, now, ip, userAgent)
	if err != nil {
		return models.TokenPair{}, err
	}

	saved, err := refreshRepo.Save(ctx, token)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  access,
		Refresh: models.IssuedToken{Value: raw, ExpiresAt: saved.ExpiresAt},
	}, nil
}
