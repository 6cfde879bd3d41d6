package services

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/process"
	"k8s.io/utils/clock"

	"nigrani/internal/models"
)

const GB = 1024 * 1024 * 1024

// ProcessStatsReader reads heap and uptime figures for the host process.
type ProcessStatsReader interface {
	ReadProcessStats(ctx context.Context) (models.ProcessStats, error)
}

// DiskUsageReader reports used disk space as a percentage.
type DiskUsageReader interface {
	DiskUsagePercent(ctx context.Context) (float64, error)
}

// RuntimeStats reads process figures from the Go runtime and gopsutil.
type RuntimeStats struct {
	clock    clock.PassiveClock
	started  time.Time
	diskPath string
}

// NewRuntimeStats creates a reader. diskPath is the mount whose usage is
// reported, "/" when empty.
func NewRuntimeStats(diskPath string, clk clock.PassiveClock) *RuntimeStats {
	if diskPath == "" {
		diskPath = "/"
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &RuntimeStats{clock: clk, started: clk.Now(), diskPath: diskPath}
}

// ReadProcessStats returns heap in use against heap obtained from the OS.
// Uptime comes from the process creation time, or from when the reader was
// created if the OS does not report it.
func (r *RuntimeStats) ReadProcessStats(ctx context.Context) (models.ProcessStats, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := models.ProcessStats{
		HeapUsedBytes:  ms.HeapAlloc,
		HeapTotalBytes: ms.HeapSys,
		UptimeSeconds:  int64(r.clock.Since(r.started).Seconds()),
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return stats, nil
	}
	createdMs, err := proc.CreateTimeWithContext(ctx)
	if err != nil || createdMs <= 0 {
		return stats, nil
	}
	if up := r.clock.Since(time.UnixMilli(createdMs)); up > 0 {
		stats.UptimeSeconds = int64(up.Seconds())
	}
	return stats, nil
}

// DiskUsagePercent returns the used percentage of the configured mount.
func (r *RuntimeStats) DiskUsagePercent(ctx context.Context) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, r.diskPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage for %s: %w", r.diskPath, err)
	}
	return usage.UsedPercent, nil
}

// Pinger is anything that can answer a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageProber reports the health of the long-term store.
type StorageProber interface {
	ProbeStorageHealth(ctx context.Context) models.StorageHealth
}

// StoreHealthProbe pings the store with a bounded timeout. A ping that does
// not finish in time is reported unhealthy.
type StoreHealthProbe struct {
	store   Pinger
	timeout time.Duration
	clock   clock.PassiveClock
}

// NewStoreHealthProbe creates a probe. A non-positive timeout uses 2s.
func NewStoreHealthProbe(store Pinger, timeout time.Duration, clk clock.PassiveClock) *StoreHealthProbe {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &StoreHealthProbe{store: store, timeout: timeout, clock: clk}
}

// ProbeStorageHealth pings the store and times the round trip.
func (p *StoreHealthProbe) ProbeStorageHealth(ctx context.Context) models.StorageHealth {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := p.clock.Now()
	err := p.store.Ping(ctx)
	elapsed := float64(p.clock.Since(start)) / float64(time.Millisecond)

	if err != nil {
		return models.StorageHealth{Status: models.StorageUnhealthy, ResponseTimeMillis: elapsed}
	}
	return models.StorageHealth{Status: models.StorageHealthy, ResponseTimeMillis: elapsed}
}

// HostInfo describes the machine the process runs on.
type HostInfo struct {
	Hostname     string
	Platform     string
	Architecture string
	GoVersion    string
}

// ReadHostInfo returns static host details.
func ReadHostInfo() HostInfo {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return HostInfo{
		Hostname:     hostname,
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
	}
}
