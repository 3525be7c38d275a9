package sweeper

import (
	"context"
	"time"

	"github.com/nkiryanov/contactbox/internal/logger"
	"github.com/nkiryanov/contactbox/internal/repository"
)

const (
	defaultInterval  = time.Hour
	defaultRetention = 7 * 24 * time.Hour
)

type Config struct {
	// How often stale tokens are purged. Default: hourly
	Interval time.Duration

	// How long revoked tokens are kept before physical deletion. Default: 7 days
	Retention time.Duration
}

// Periodic job that deletes expired and long revoked refresh tokens,
// keeping the token table bounded. Runs independently of request traffic.
type Sweeper struct {
	interval  time.Duration
	retention time.Duration

	refreshRepo repository.RefreshTokenRepo
	logger      logger.Logger
}

func New(cfg Config, refreshRepo repository.RefreshTokenRepo, logger logger.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}

	return &Sweeper{
		interval:    cfg.Interval,
		retention:   cfg.Retention,
		refreshRepo: refreshRepo,
		logger:      logger,
	}
}

// Run starts the sweep loop and returns a channel closed when the loop stops.
// Failures are logged and retried on the next tick, never propagated: a purge
// left half done is simply finished by a later run.
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting token sweeper", "interval", s.interval, "retention", s.retention)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Token sweeper stopped by context")
				return

			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	return idleStopped
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.refreshRepo.DeleteStale(ctx, time.Now(), s.retention)
	if err != nil {
		s.logger.Error("Failed to purge stale refresh tokens", "error", err)
		return
	}

	s.logger.Info("Stale refresh tokens purged", "deleted", deleted)
}
