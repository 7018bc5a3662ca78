package token

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fablekeep/fablekeep/pkg/observability"
	"github.com/fablekeep/fablekeep/pkg/storage"
)

// DefaultRetention is how long dead refresh rows are kept before the sweeper
// removes them. Rows are logically dead the moment they are revoked or
// expire; the sweeper is storage hygiene, not part of token liveness.
const DefaultRetention = 30 * 24 * time.Hour

// Sweeper periodically deletes refresh rows whose expiry is older than the
// retention window.
type Sweeper struct {
	store     storage.RefreshTokenStore
	retention time.Duration
	logger    *observability.Logger
	cron      *cron.Cron

	// OnSwept, when set, is called with the row count of each sweep that
	// removed at least one row.
	OnSwept func(deleted int64)
}

// NewSweeper creates a sweeper. A non-positive retention falls back to
// DefaultRetention.
func NewSweeper(store storage.RefreshTokenStore, retention time.Duration, logger *observability.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

// SweepOnce runs a single sweep and returns the number of rows removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.store.DeleteExpiredRefreshTokens(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("refresh token sweep failed")
		return 0, err
	}
	if n > 0 {
		s.logger.WithField("deleted", n).Info("swept expired refresh tokens")
		if s.OnSwept != nil {
			s.OnSwept(n)
		}
	}
	return n, nil
}

// Start schedules sweeps on the given cron expression (e.g. "17 3 * * *")
// and runs them until Stop is called.
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.SweepOnce(ctx)
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts scheduled sweeps. Safe to call when never started.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
