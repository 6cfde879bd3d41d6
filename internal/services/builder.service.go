package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"nigrani/internal/models"
	"nigrani/internal/safemath"
)

const (
	// loadSampleCount is how many recent samples feed the load indicators.
	loadSampleCount = 10
	// statusSampleCount is how many recent samples the live status averages.
	statusSampleCount = 100
)

// BuilderDeps are the collaborators a SnapshotBuilder reads from. Any of
// them except Recorder may be nil, in which case its fallback is used.
type BuilderDeps struct {
	Recorder *SampleRecorder
	Process  ProcessStatsReader
	Disk     DiskUsageReader
	Storage  StorageProber
	Users    UserCounter
	Host     HostInfo
}

// SnapshotBuilder composes point-in-time snapshots. Building never fails:
// every collaborator error is replaced by its fallback value.
type SnapshotBuilder struct {
	deps         BuilderDeps
	clock        clock.PassiveClock
	location     *time.Location
	activeWindow time.Duration
	logger       *zap.Logger
}

// NewSnapshotBuilder creates a builder. Calendar keys are derived in loc.
func NewSnapshotBuilder(deps BuilderDeps, loc *time.Location, activeWindow time.Duration, clk clock.PassiveClock, logger *zap.Logger) *SnapshotBuilder {
	if deps.Recorder == nil {
		deps.Recorder = NewSampleRecorder(DefaultRecorderConfig(), clk)
	}
	if loc == nil {
		loc = time.UTC
	}
	if activeWindow <= 0 {
		activeWindow = 24 * time.Hour
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotBuilder{
		deps:         deps,
		clock:        clk,
		location:     loc,
		activeWindow: activeWindow,
		logger:       logger,
	}
}

// Build reads every collaborator concurrently and returns a new snapshot.
func (b *SnapshotBuilder) Build(ctx context.Context) models.Snapshot {
	now := b.clock.Now()

	var (
		stats       models.ProcessStats
		diskPercent float64
		activeUsers int64
		totalUsers  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	if b.deps.Process != nil {
		g.Go(func() error {
			s, err := b.deps.Process.ReadProcessStats(gctx)
			if err != nil {
				b.logger.Warn("Process stats unavailable, using fallback", zap.Error(err))
				return nil
			}
			stats = s
			return nil
		})
	}
	if b.deps.Disk != nil {
		g.Go(func() error {
			p, err := b.deps.Disk.DiskUsagePercent(gctx)
			if err != nil {
				b.logger.Debug("Disk usage unavailable, using fallback", zap.Error(err))
				return nil
			}
			diskPercent = p
			return nil
		})
	}
	if b.deps.Users != nil {
		g.Go(func() error {
			n, err := b.deps.Users.CountActiveUsers(gctx, now.Add(-b.activeWindow))
			if err != nil {
				b.logger.Warn("Active user count unavailable, using fallback", zap.Error(err))
				return nil
			}
			activeUsers = n
			return nil
		})
		g.Go(func() error {
			n, err := b.deps.Users.CountTotalUsers(gctx)
			if err != nil {
				b.logger.Warn("Total user count unavailable, using fallback", zap.Error(err))
				return nil
			}
			totalUsers = n
			return nil
		})
	}
	_ = g.Wait()

	recorder := b.deps.Recorder
	avgResponse, _ := recorder.AverageOfRecent(loadSampleCount)
	avgResponse = safemath.NonNegative(avgResponse)
	errorRate, errorCount := recorder.ErrorStats()

	heapUsed := float64(stats.HeapUsedBytes)
	heapTotal := float64(stats.HeapTotalBytes)

	snap := models.Snapshot{
		ID:                        uuid.NewString(),
		CPULoadIndicator:          safemath.Round(safemath.ClampPercent(math.Min(100, avgResponse/10)), 2),
		MemoryUsagePercent:        safemath.Round(safemath.Percent(heapUsed, heapTotal), 2),
		DiskUsagePercent:          safemath.Round(safemath.ClampPercent(diskPercent), 2),
		SystemLoadIndicator:       safemath.Round(avgResponse/100, 2),
		AverageResponseTimeMillis: safemath.Round(avgResponse, 2),
		ActiveConnections:         int64(recorder.Len()),
		TotalMemoryGB:             safemath.Round(safemath.Div(heapTotal, GB), 4),
		FreeMemoryGB:              safemath.Round(safemath.NonNegative(safemath.Div(heapTotal-heapUsed, GB)), 4),
		UptimeSeconds:             stats.UptimeSeconds,
		ActiveUserCount:           activeUsers,
		TotalUserCount:            totalUsers,
		ErrorRatePercent:          safemath.ClampPercent(errorRate),
		ErrorCount:                errorCount,
	}
	snap.SetTimestamp(now, b.location)
	return snap
}

// LiveStatus builds a fresh snapshot and adds the readings the live
// dashboard shows but the store never keeps.
func (b *SnapshotBuilder) LiveStatus(ctx context.Context) models.LiveStatus {
	snap := b.Build(ctx)

	health := models.StorageHealth{Status: models.StorageUnknown}
	if b.deps.Storage != nil {
		health = b.deps.Storage.ProbeStorageHealth(ctx)
	}

	avg, _ := b.deps.Recorder.AverageOfRecent(statusSampleCount)

	return models.LiveStatus{
		Snapshot:                  snap,
		StorageStatus:             health.Status,
		StorageResponseTimeMillis: safemath.Round(health.ResponseTimeMillis, 2),
		RequestsPerMinute:         b.deps.Recorder.RequestsPerMinute(),
		AverageResponseTimeMillis: math.Round(safemath.NonNegative(avg)),
		UptimeFormatted:           FormatUptime(time.Duration(snap.UptimeSeconds) * time.Second),
		Hostname:                  b.deps.Host.Hostname,
		Platform:                  b.deps.Host.Platform,
		Architecture:              b.deps.Host.Architecture,
		GoVersion:                 b.deps.Host.GoVersion,
		LastUpdated:               snap.Timestamp,
	}
}

// FormatUptime renders d as "1d 2h 3m", dropping leading zero units.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
