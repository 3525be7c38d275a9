package e2e

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/contactbox/internal/handlers"
	"github.com/nkiryanov/contactbox/internal/logger"
	"github.com/nkiryanov/contactbox/internal/repository/postgres"
	"github.com/nkiryanov/contactbox/internal/service/auth"
	"github.com/nkiryanov/contactbox/internal/service/auth/denylist"
	"github.com/nkiryanov/contactbox/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/contactbox/internal/service/contact"
	"github.com/nkiryanov/contactbox/internal/service/user"
	"github.com/nkiryanov/contactbox/internal/testutil"
)

type Services struct {
	AuthService    *auth.AuthService
	ContactService *contact.ContactService
	UserService    *user.UserService
}

// noLimiter passes requests through, rate limiting is not under e2e test
func noLimiter(next http.Handler) http.Handler { return next }

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"})
		require.NoError(t, err, "token manager should be created without errors")

		us := user.NewService(auth.DefaultHasher, storage.User())
		cs := contact.NewService(storage.Contact())

		as, err := auth.NewService(auth.Config{}, tokenManager, us, denylist.New(testutil.StartRedis(t)), storage)
		require.NoError(t, err, "auth service starting error", err)

		router := handlers.NewRouter(as, cs, noLimiter, logger.NewNoOpLogger())

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService:    as,
			ContactService: cs,
			UserService:    us,
		})
	})
}
