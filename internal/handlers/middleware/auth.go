package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/contactbox/internal/apperrors"
	"github.com/nkiryanov/contactbox/internal/handlers/render"
	"github.com/nkiryanov/contactbox/internal/handlers/userctx"
	"github.com/nkiryanov/contactbox/internal/models"
)

type authService interface {
	UserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware resolves the bearer token to a user and stores it in the
// request context. Requests without a valid token get 401 and go no further.
// Denylist or storage failures are logged and answered with 500, they must
// not masquerade as a bad token.
func AuthMiddleware(as authService, l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.UserFromRequest(r.Context(), r)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrUnauthorized):
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			default:
				l.Error("Failed to resolve user from request", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
