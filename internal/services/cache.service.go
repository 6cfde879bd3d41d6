package services

import (
	"sync"
	"time"

	"nigrani/internal/models"
	"nigrani/internal/telemetry"
)

// DefaultCacheCapacity is 24 hours of snapshots at a 5 minute cadence.
const DefaultCacheCapacity = 288

// SnapshotCache is a fixed-capacity FIFO ring of the most recent snapshots.
// It holds copies only; losing it is harmless.
type SnapshotCache struct {
	mu    sync.RWMutex
	buf   []models.Snapshot
	head  int // index of the oldest entry
	count int
}

// NewSnapshotCache creates a cache holding at most capacity snapshots.
func NewSnapshotCache(capacity int) *SnapshotCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &SnapshotCache{buf: make([]models.Snapshot, capacity)}
}

// Append adds a snapshot, evicting the oldest one when full.
func (c *SnapshotCache) Append(s models.Snapshot) {
	c.mu.Lock()
	if c.count < len(c.buf) {
		c.buf[(c.head+c.count)%len(c.buf)] = s
		c.count++
	} else {
		c.buf[c.head] = s
		c.head = (c.head + 1) % len(c.buf)
	}
	n := c.count
	c.mu.Unlock()

	telemetry.CacheEntries.Set(float64(n))
}

// Query returns the entries with Timestamp >= since, oldest first.
func (c *SnapshotCache) Query(since time.Time) []models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Snapshot, 0, c.count)
	for i := 0; i < c.count; i++ {
		s := c.buf[(c.head+i)%len(c.buf)]
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out
}

// Latest returns the newest entry.
func (c *SnapshotCache) Latest() (models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.count == 0 {
		return models.Snapshot{}, false
	}
	return c.buf[(c.head+c.count-1)%len(c.buf)], true
}

// Len returns the number of cached snapshots.
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Capacity returns the maximum number of cached snapshots.
func (c *SnapshotCache) Capacity() int {
	return len(c.buf)
}

// Clear drops every cached snapshot.
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	for i := range c.buf {
		c.buf[i] = models.Snapshot{}
	}
	c.head, c.count = 0, 0
	c.mu.Unlock()

	telemetry.CacheEntries.Set(0)
}
