package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestActivityTracker(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := testingclock.NewFakeClock(start)
	tracker := NewActivityTracker(clk)

	tracker.Touch("alice")
	tracker.Touch("")
	clk.Step(2 * time.Hour)
	tracker.Touch("bob")
	tracker.Touch("bob")

	total, err := tracker.CountTotalUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	active, err := tracker.CountActiveUsers(ctx, clk.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	active, err = tracker.CountActiveUsers(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)
}
