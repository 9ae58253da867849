package alerts

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard/pkg/logger"
)

// Retention defaults.
const (
	DefaultRetentionWindow = 30 * 24 * time.Hour
	defaultSweepSchedule   = "@daily"
)

// Sweeper periodically evicts alerts older than the retention window.
type Sweeper struct {
	store     *Store
	cron      *cron.Cron
	schedule  string
	retention time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// SweeperOption customises the Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepCron injects a preconfigured cron instance, primarily for testing.
func WithSweepCron(c *cron.Cron) SweeperOption {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSweepNow overrides the clock used for the retention cutoff.
func WithSweepNow(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetentionWindow adjusts how long alerts are retained.
func WithRetentionWindow(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSweepSchedule overrides the cron specification for the sweep.
func WithSweepSchedule(spec string) SweeperOption {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with a 30-day window swept daily.
func NewSweeper(store *Store, opts ...SweeperOption) *Sweeper {
	sweeper := &Sweeper{
		store:     store,
		schedule:  defaultSweepSchedule,
		retention: DefaultRetentionWindow,
		now:       time.Now,
		log:       logger.WithModule("sweeper"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the sweep job with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.store == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		removed := s.RunOnce(context.Background())
		if removed > 0 {
			s.log.Info("retention sweep removed alerts", zap.Int("removed", removed))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for a running sweep to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes a sweep immediately and returns the number of evicted
// alerts. Used by tests and during graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	if s.store == nil {
		return 0
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := s.now().Add(-s.retention)
	return s.store.Sweep(ctx, cutoff)
}
