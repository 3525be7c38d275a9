package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUnauthorized      = errors.New("unauthorized")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token is revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrAccessTokenInvalid = errors.New("access token is invalid")
	ErrAccessTokenExpired = errors.New("access token is expired")
	ErrAccessTokenRevoked = errors.New("access token is revoked")

	ErrContactAlreadyExists = errors.New("contact with same email or phone already exists")
	ErrContactNotFound      = errors.New("contact not found")
)
