package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nigrani/internal/models"
	"nigrani/internal/telemetry"
)

// SnapshotSource builds snapshots.
type SnapshotSource interface {
	Build(ctx context.Context) models.Snapshot
}

// SnapshotWriter persists snapshots durably.
type SnapshotWriter interface {
	Insert(ctx context.Context, s models.Snapshot) error
}

// SnapshotListener is told about every collected snapshot.
type SnapshotListener func(models.Snapshot)

// CollectorConfig sets the collection cadence.
type CollectorConfig struct {
	Interval        time.Duration
	WarmupInterval  time.Duration
	WarmupThreshold int // warmup ticks collect only while the cache holds fewer entries
	PersistTimeout  time.Duration
}

// DefaultCollectorConfig returns the default cadence.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Interval:        5 * time.Minute,
		WarmupInterval:  time.Minute,
		WarmupThreshold: 60,
		PersistTimeout:  10 * time.Second,
	}
}

// SnapshotCollector builds snapshots on a schedule or on demand and hands
// each one to the cache, the store and any listeners.
type SnapshotCollector struct {
	source SnapshotSource
	cache  *SnapshotCache
	store  SnapshotWriter
	cfg    CollectorConfig
	logger *zap.Logger

	collectMu sync.Mutex
	persistWG sync.WaitGroup

	listenersMu sync.RWMutex
	listeners   []SnapshotListener
}

// NewSnapshotCollector creates a collector. store may be nil, in which case
// snapshots only reach the cache.
func NewSnapshotCollector(source SnapshotSource, cache *SnapshotCache, store SnapshotWriter, cfg CollectorConfig, logger *zap.Logger) *SnapshotCollector {
	def := DefaultCollectorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.WarmupInterval <= 0 {
		cfg.WarmupInterval = def.WarmupInterval
	}
	if cfg.WarmupThreshold <= 0 {
		cfg.WarmupThreshold = def.WarmupThreshold
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = def.PersistTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCollector{
		source: source,
		cache:  cache,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// OnSnapshot registers a listener for collected snapshots.
func (c *SnapshotCollector) OnSnapshot(l SnapshotListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Register adds the regular and warmup collection tasks to s.
func (c *SnapshotCollector) Register(s *Scheduler) {
	s.Every("snapshot", c.cfg.Interval, func(ctx context.Context) {
		c.CollectNow(ctx)
	})
	s.Every("snapshot-warmup", c.cfg.WarmupInterval, func(ctx context.Context) {
		if c.cache.Len() < c.cfg.WarmupThreshold {
			c.CollectNow(ctx)
		}
	})
}

// CollectNow builds one snapshot, appends it to the cache and submits it
// for persistence without waiting for the write.
func (c *SnapshotCollector) CollectNow(ctx context.Context) models.Snapshot {
	// Serialized so cache appends stay in timestamp order.
	c.collectMu.Lock()
	snap := c.source.Build(ctx)
	c.cache.Append(snap)
	c.collectMu.Unlock()

	telemetry.SnapshotsCollectedTotal.Inc()
	c.persist(ctx, snap)

	c.listenersMu.RLock()
	listeners := append([]SnapshotListener(nil), c.listeners...)
	c.listenersMu.RUnlock()
	for _, l := range listeners {
		l(snap)
	}

	c.logger.Debug("Snapshot collected",
		zap.String("id", snap.ID),
		zap.Time("timestamp", snap.Timestamp),
		zap.Int("cached", c.cache.Len()),
	)
	return snap
}

func (c *SnapshotCollector) persist(ctx context.Context, snap models.Snapshot) {
	if c.store == nil {
		return
	}
	c.persistWG.Add(1)
	go func() {
		defer c.persistWG.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PersistTimeout)
		defer cancel()

		if err := c.store.Insert(pctx, snap); err != nil {
			telemetry.SnapshotPersistFailuresTotal.Inc()
			c.logger.Warn("Failed to persist snapshot", zap.String("id", snap.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until every submitted write has finished.
func (c *SnapshotCollector) Wait() {
	c.persistWG.Wait()
}
