package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	testingclock "k8s.io/utils/clock/testing"

	"nigrani/internal/models"
	"nigrani/internal/repository"
)

func openTestStore(t *testing.T) *repository.SnapshotRepository {
	t.Helper()
	cfg := repository.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "nigrani.db")
	store, err := repository.NewSnapshotRepository(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSweepHonoursThreeYearHorizon(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	clk := testingclock.NewFakeClock(now)
	store := openTestStore(t)

	expired := models.Snapshot{ID: "expired"}
	expired.SetTimestamp(now.AddDate(-3, 0, -1), time.UTC)
	kept := models.Snapshot{ID: "kept"}
	kept.SetTimestamp(now.AddDate(-3, 0, 1), time.UTC)
	require.NoError(t, store.Insert(ctx, expired))
	require.NoError(t, store.Insert(ctx, kept))

	sweeper := NewRetentionSweeper(store, DefaultRetentionConfig(), clk, zaptest.NewLogger(t))

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	left, err := store.RangeQuery(ctx, time.Time{}, now)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "kept", left[0].ID)
}

func TestSweepCutoff(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	sweeper := NewRetentionSweeper(nil, RetentionConfig{HorizonYears: 1}, clk, nil)

	// AddDate normalizes Feb 29 of a non-leap year to Mar 1.
	assert.True(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC).Equal(sweeper.Cutoff()))
}

type failingPruner struct{ calls atomic.Int32 }

func (p *failingPruner) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	p.calls.Add(1)
	return 0, errors.New("store unavailable")
}

func TestSweepFailureIsReturnedAndScheduleContinues(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	pruner := &failingPruner{}
	sweeper := NewRetentionSweeper(pruner, RetentionConfig{Interval: time.Hour}, clk, zaptest.NewLogger(t))

	_, err := sweeper.Sweep(context.Background())
	require.Error(t, err)

	sched := NewScheduler(clk, zaptest.NewLogger(t))
	sweeper.Register(sched)
	sched.Start(context.Background())
	defer sched.Stop()

	clk.Step(time.Hour)
	assert.Eventually(t, func() bool { return pruner.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	clk.Step(time.Hour)
	assert.Eventually(t, func() bool { return pruner.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
}
