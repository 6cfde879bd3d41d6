package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nigrani/internal/models"
)

func cachedSnapshot(i int, ts time.Time) models.Snapshot {
	s := models.Snapshot{ID: fmt.Sprintf("s%d", i)}
	s.SetTimestamp(ts, time.UTC)
	return s
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	cache := NewSnapshotCache(DefaultCacheCapacity)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 300; i++ {
		cache.Append(cachedSnapshot(i, base.Add(time.Duration(i)*5*time.Minute)))
		require.LessOrEqual(t, cache.Len(), 288)
	}

	all := cache.Query(time.Time{})
	require.Len(t, all, 288)
	assert.Equal(t, "s12", all[0].ID)
	assert.Equal(t, "s299", all[287].ID)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Timestamp.Before(all[i-1].Timestamp))
	}

	latest, ok := cache.Latest()
	require.True(t, ok)
	assert.Equal(t, "s299", latest.ID)
}

func TestCacheQuerySinceIsInclusive(t *testing.T) {
	cache := NewSnapshotCache(10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		cache.Append(cachedSnapshot(i, base.Add(time.Duration(i)*time.Minute)))
	}

	got := cache.Query(base.Add(2 * time.Minute))
	require.Len(t, got, 3)
	assert.Equal(t, "s2", got[0].ID)
	assert.Equal(t, "s4", got[2].ID)

	assert.Empty(t, cache.Query(base.Add(time.Hour)))
}

func TestCacheQueryReturnsCopy(t *testing.T) {
	cache := NewSnapshotCache(3)
	cache.Append(cachedSnapshot(1, time.Now()))

	got := cache.Query(time.Time{})
	got[0].ID = "mutated"

	latest, _ := cache.Latest()
	assert.Equal(t, "s1", latest.ID)
}

func TestCacheEmptyAndClear(t *testing.T) {
	cache := NewSnapshotCache(0)
	assert.Equal(t, DefaultCacheCapacity, cache.Capacity())

	_, ok := cache.Latest()
	assert.False(t, ok)
	assert.NotNil(t, cache.Query(time.Time{}))

	cache.Append(cachedSnapshot(1, time.Now()))
	cache.Clear()
	assert.Zero(t, cache.Len())
}

func TestCacheConcurrentAppendAndQuery(t *testing.T) {
	cache := NewSnapshotCache(50)
	base := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			cache.Append(cachedSnapshot(i, base.Add(time.Duration(i)*time.Second)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			got := cache.Query(time.Time{})
			assert.LessOrEqual(t, len(got), 50)
		}
	}()
	wg.Wait()

	assert.Equal(t, 50, cache.Len())
}
