package services

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// UserCounter supplies the domain user counts carried by each snapshot.
type UserCounter interface {
	CountActiveUsers(ctx context.Context, since time.Time) (int64, error)
	CountTotalUsers(ctx context.Context) (int64, error)
}

// ActivityTracker counts distinct API subjects by when they were last seen.
type ActivityTracker struct {
	mu       sync.RWMutex
	clock    clock.PassiveClock
	lastSeen map[string]time.Time
}

// NewActivityTracker creates an empty tracker.
func NewActivityTracker(clk clock.PassiveClock) *ActivityTracker {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ActivityTracker{clock: clk, lastSeen: make(map[string]time.Time)}
}

// Touch marks subject as active now. Empty subjects are ignored.
func (a *ActivityTracker) Touch(subject string) {
	if subject == "" {
		return
	}
	now := a.clock.Now()
	a.mu.Lock()
	a.lastSeen[subject] = now
	a.mu.Unlock()
}

// CountActiveUsers returns how many subjects were seen at or after since.
func (a *ActivityTracker) CountActiveUsers(_ context.Context, since time.Time) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var n int64
	for _, seen := range a.lastSeen {
		if !seen.Before(since) {
			n++
		}
	}
	return n, nil
}

// CountTotalUsers returns how many subjects were ever seen.
func (a *ActivityTracker) CountTotalUsers(_ context.Context) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return int64(len(a.lastSeen)), nil
}
