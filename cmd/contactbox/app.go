package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/contactbox/internal/db"
	"github.com/nkiryanov/contactbox/internal/handlers"
	"github.com/nkiryanov/contactbox/internal/handlers/middleware"
	"github.com/nkiryanov/contactbox/internal/logger"
	"github.com/nkiryanov/contactbox/internal/repository/postgres"
	"github.com/nkiryanov/contactbox/internal/service/auth"
	"github.com/nkiryanov/contactbox/internal/service/auth/denylist"
	"github.com/nkiryanov/contactbox/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/contactbox/internal/service/contact"
	"github.com/nkiryanov/contactbox/internal/service/sweeper"
	"github.com/nkiryanov/contactbox/internal/service/user"
)

// Rate limit for "/users/me", mirrors what the API promises in its docs
const (
	meRateLimitRequests = 5
	meRateLimitWindow   = time.Minute
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	pool    *pgxpool.Pool
	rdb     *redis.Client
	sweeper *sweeper.Sweeper
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Connect to redis
	redisOpts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("error while parsing redis url. Err: %w", err)
	}
	rdb := redis.NewClient(redisOpts)

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		Alg:        c.SigningAlg,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage.User())
	contactService := contact.NewService(storage.Contact())
	authService, err := auth.NewService(auth.Config{}, tokenManager, userService, denylist.New(rdb), storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	tokenSweeper := sweeper.New(sweeper.Config{
		Interval:  c.CleanupInterval,
		Retention: c.RevokedRetention,
	}, storage.Refresh(), logger)

	meLimiter := middleware.RateLimitMiddleware(rdb, middleware.RateLimitConfig{
		MaxRequests: meRateLimitRequests,
		Window:      meRateLimitWindow,
	})

	mux := handlers.NewRouter(authService, contactService, meLimiter, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     logger,
		pool:       pool,
		rdb:        rdb,
		sweeper:    tokenSweeper,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := s.sweeper.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	if closeErr := s.rdb.Close(); closeErr != nil {
		s.logger.Error("Failed to close redis client", "error", closeErr)
	}
	s.pool.Close()

	return err
}
