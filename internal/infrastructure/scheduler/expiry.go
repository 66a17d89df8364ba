// Package scheduler runs periodic background work for the registry.
package scheduler

import (
	"context"
	"time"

	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

// Expirer expires every initial record whose expiry time has passed.
type Expirer interface {
	TickExpirations(ctx context.Context) ([]string, error)
}

// ExpiryScheduler calls TickExpirations on a fixed interval.
type ExpiryScheduler struct {
	expirer  Expirer
	interval time.Duration
	logger   logger.Logger
}

// NewExpiryScheduler creates a scheduler. A non-positive interval disables it.
func NewExpiryScheduler(expirer Expirer, interval time.Duration, log logger.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{expirer: expirer, interval: interval, logger: log.WithComponent("ExpiryScheduler")}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ExpiryScheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info(ctx, "Expiry scheduler disabled")
		return
	}
	s.logger.Info(ctx, "Expiry scheduler started", logger.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.WithoutCancel(ctx), "Expiry scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpiryScheduler) sweep(ctx context.Context) {
	expired, err := s.expirer.TickExpirations(ctx)
	switch {
	case err != nil && errors.CodeOf(err) == errors.CodeCancelled:
		s.logger.Debug(context.WithoutCancel(ctx), "Expiry sweep interrupted", logger.Int("expired", len(expired)))
	case err != nil:
		s.logger.Error(ctx, "Expiry sweep failed", err, logger.Int("expired", len(expired)))
	case len(expired) > 0:
		s.logger.Info(ctx, "Expired key records", logger.Int("count", len(expired)), logger.Strings("ids", expired))
	}
}
