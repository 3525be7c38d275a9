package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/contactbox/internal/handlers/middleware"
	"github.com/nkiryanov/contactbox/internal/logger"
	"github.com/nkiryanov/contactbox/internal/models"
	"github.com/nkiryanov/contactbox/internal/repository"
)

type authService interface {
	Register(ctx context.Context, username string, email string, password string) (models.User, error)
	Login(ctx context.Context, login string, password string, ip string, userAgent string) (models.TokenPair, error)
	Refresh(ctx context.Context, rawRefresh string, ip string, userAgent string) (models.TokenPair, error)
	Logout(ctx context.Context, access string, rawRefresh string) error
	UserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type contactService interface {
	Create(ctx context.Context, contact models.Contact) (models.Contact, error)
	List(ctx context.Context, user *models.User, limit int, offset int) ([]models.Contact, error)
	Get(ctx context.Context, user *models.User, contactID uuid.UUID) (models.Contact, error)
	Update(ctx context.Context, user *models.User, contactID uuid.UUID, data repository.UpdateContact) (models.Contact, error)
	Delete(ctx context.Context, user *models.User, contactID uuid.UUID) error
	Search(ctx context.Context, user *models.User, query string, limit int, offset int) ([]models.Contact, error)
	UpcomingBirthdays(ctx context.Context, user *models.User, days int) ([]models.Contact, error)
}

// NewRouter wires http routes to handlers.
//
// Routes under "/contacts" and "/users/me" require a valid access token.
// The limiter middleware is applied to "/users/me" only.
func NewRouter(auth authService, contacts contactService, limiter func(http.Handler) http.Handler, l logger.Logger) http.Handler {
	mux := http.NewServeMux()

	withAuth := middleware.AuthMiddleware(auth, l)

	mux.Handle("POST /auth/register", handleRegister(auth, l))
	mux.Handle("POST /auth/login", handleLogin(auth, l))
	mux.Handle("POST /auth/refresh", handleTokenRefresh(auth, l))
	mux.Handle("POST /auth/logout", handleLogout(auth, l))

	mux.Handle("GET /users/me", limiter(withAuth(handleUserMe())))

	mux.Handle("POST /contacts", withAuth(handleCreateContact(contacts, l)))
	mux.Handle("GET /contacts", withAuth(handleListContacts(contacts, l)))
	mux.Handle("GET /contacts/search", withAuth(handleSearchContacts(contacts, l)))
	mux.Handle("GET /contacts/birthdays", withAuth(handleUpcomingBirthdays(contacts, l)))
	mux.Handle("GET /contacts/{id}", withAuth(handleGetContact(contacts, l)))
	mux.Handle("PUT /contacts/{id}", withAuth(handleUpdateContact(contacts, l)))
	mux.Handle("DELETE /contacts/{id}", withAuth(handleDeleteContact(contacts, l)))

	return chain(mux, middleware.LoggerMiddleware(l))
}

// chain applies middlewares in reverse order, so the first listed is the outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
