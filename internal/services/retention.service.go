package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"nigrani/internal/telemetry"
)

// SnapshotPruner deletes snapshots older than a cutoff.
type SnapshotPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig sets the sweep horizon and cadence.
type RetentionConfig struct {
	HorizonYears int
	Interval     time.Duration
	Timeout      time.Duration
}

// DefaultRetentionConfig keeps three years and sweeps daily.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{HorizonYears: 3, Interval: 24 * time.Hour, Timeout: time.Minute}
}

// RetentionSweeper deletes snapshots older than the retention horizon.
type RetentionSweeper struct {
	store  SnapshotPruner
	cfg    RetentionConfig
	clock  clock.PassiveClock
	logger *zap.Logger
}

// NewRetentionSweeper creates a sweeper.
func NewRetentionSweeper(store SnapshotPruner, cfg RetentionConfig, clk clock.PassiveClock, logger *zap.Logger) *RetentionSweeper {
	def := DefaultRetentionConfig()
	if cfg.HorizonYears <= 0 {
		cfg.HorizonYears = def.HorizonYears
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionSweeper{store: store, cfg: cfg, clock: clk, logger: logger}
}

// Cutoff returns the oldest timestamp that is still retained.
func (s *RetentionSweeper) Cutoff() time.Time {
	return s.clock.Now().AddDate(-s.cfg.HorizonYears, 0, 0)
}

// Sweep deletes every snapshot older than Cutoff and returns how many were
// removed. Running it again with no new data deletes nothing.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cutoff := s.Cutoff()
	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		telemetry.RetentionFailuresTotal.Inc()
		return 0, fmt.Errorf("retention sweep failed: %w", err)
	}
	telemetry.RetentionDeletedTotal.Add(float64(n))
	s.logger.Info("Retention sweep finished", zap.Time("cutoff", cutoff), zap.Int64("deleted", n))
	return n, nil
}

// Register adds the periodic sweep to sched. Failures are logged and the
// next interval retries.
func (s *RetentionSweeper) Register(sched *Scheduler) {
	sched.Every("retention", s.cfg.Interval, func(ctx context.Context) {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("Retention sweep failed", zap.Error(err))
		}
	})
}
