package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/secretwall/internal/domain"
)

// Sweeper periodically deletes expired sessions from stores that do not
// expire entries on their own
type Sweeper struct {
	store    domain.SessionStore
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewSweeper validates schedule and registers the sweep job. Standard five
// field specs and descriptors such as "@every 10m" are accepted.
func NewSweeper(store domain.SessionStore, schedule string, logger *slog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		store:    store,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// sweep to finish
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("session sweeper starting", "schedule", s.schedule)

	s.Sweep(ctx)
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("session sweeper shutting down")
	<-s.cron.Stop().Done()
	return nil
}

// Sweep deletes every session expired as of now
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to sweep expired sessions", "error", err)
		return 0
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return n
}
