package handlers

import (
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/contactbox/internal/apperrors"
	"github.com/nkiryanov/contactbox/internal/handlers/render"
	"github.com/nkiryanov/contactbox/internal/logger"
	"github.com/nkiryanov/contactbox/internal/service/auth"
)

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type RegisterRequest struct {
		Username string `json:"username" validate:"required,min=2,max=50"`
		Email    string `json:"email" validate:"required,email,max=100"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[RegisterRequest](w, r)
		if err != nil {
			return
		}

		user, err := authService.Register(r.Context(), data.Username, data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User with same username or email already exists", http.StatusConflict)
			default:
				l.Error("Failed to register user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, userResponse{ID: user.ID, Username: user.Username, Email: user.Email}, http.StatusCreated)
	})
}

// Login accepts form encoded credentials (username may also be an email)
func handleLogin(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			render.ServiceError(w, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		login := r.PostFormValue("username")
		password := r.PostFormValue("password")
		if login == "" || password == "" {
			render.ServiceError(w, "Username and password are required", http.StatusBadRequest)
			return
		}

		pair, err := authService.Login(r.Context(), login, password, clientIP(r), r.UserAgent())
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUnauthorized):
				render.ServiceError(w, "Incorrect username or password", http.StatusUnauthorized)
			default:
				l.Error("Failed to login user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, tokenPairResponse{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
			TokenType:    "bearer",
		}, http.StatusCreated)
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[RefreshRequest](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Refresh(r.Context(), data.RefreshToken, clientIP(r), r.UserAgent())
		if err != nil {
			// One message for not found, expired and revoked: the exact token
			// state must not leak to the caller
			switch {
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
				errors.Is(err, apperrors.ErrRefreshTokenExpired),
				errors.Is(err, apperrors.ErrRefreshTokenRevoked):
				l.Debug("Refresh token rejected", "error", err)
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			default:
				l.Error("Failed to refresh tokens", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, tokenPairResponse{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
			TokenType:    "bearer",
		}, http.StatusCreated)
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	type LogoutRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, err := auth.BearerToken(r)
		if err != nil {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		data, err := render.BindAndValidate[LogoutRequest](w, r)
		if err != nil {
			return
		}

		err = authService.Logout(r.Context(), access, data.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrAccessTokenInvalid):
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			default:
				l.Error("Failed to logout user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.NoContent(w)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
