package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nigrani/internal/models"
)

type stubPinger struct {
	err   error
	block bool
}

func (p stubPinger) Ping(ctx context.Context) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

func TestStoreHealthProbe(t *testing.T) {
	tests := []struct {
		name   string
		pinger stubPinger
		want   string
	}{
		{"healthy", stubPinger{}, models.StorageHealthy},
		{"error", stubPinger{err: errors.New("closed")}, models.StorageUnhealthy},
		{"timeout", stubPinger{block: true}, models.StorageUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewStoreHealthProbe(tt.pinger, 20*time.Millisecond, nil)
			health := probe.ProbeStorageHealth(context.Background())
			assert.Equal(t, tt.want, health.Status)
			assert.GreaterOrEqual(t, health.ResponseTimeMillis, 0.0)
		})
	}
}

func TestRuntimeStatsReadsHeap(t *testing.T) {
	stats, err := NewRuntimeStats("", nil).ReadProcessStats(context.Background())
	require.NoError(t, err)
	assert.Positive(t, stats.HeapTotalBytes)
	assert.LessOrEqual(t, stats.HeapUsedBytes, stats.HeapTotalBytes)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, int64(0))
}

func TestRuntimeStatsDiskUsage(t *testing.T) {
	reader := NewRuntimeStats(t.TempDir(), nil)
	percent, err := reader.DiskUsagePercent(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, percent, 0.0)
	assert.LessOrEqual(t, percent, 100.0)

	_, err = NewRuntimeStats("/does/not/exist", nil).DiskUsagePercent(context.Background())
	assert.Error(t, err)
}

func TestReadHostInfo(t *testing.T) {
	info := ReadHostInfo()
	assert.NotEmpty(t, info.Hostname)
	assert.NotEmpty(t, info.Platform)
	assert.NotEmpty(t, info.GoVersion)
}
