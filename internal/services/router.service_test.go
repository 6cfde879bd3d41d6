package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	testingclock "k8s.io/utils/clock/testing"

	"nigrani/internal/models"
)

type queryCall struct {
	method     string
	start, end time.Time
}

type stubQuerier struct {
	mu      sync.Mutex
	calls   []queryCall
	snaps   []models.Snapshot
	rollups []models.Rollup
	err     error
	block   bool
}

func (q *stubQuerier) record(ctx context.Context, method string, start, end time.Time) error {
	q.mu.Lock()
	q.calls = append(q.calls, queryCall{method: method, start: start, end: end})
	q.mu.Unlock()
	if q.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return q.err
}

func (q *stubQuerier) RangeQuery(ctx context.Context, start, end time.Time) ([]models.Snapshot, error) {
	if err := q.record(ctx, "range", start, end); err != nil {
		return nil, err
	}
	return q.snaps, nil
}

func (q *stubQuerier) AggregateDaily(ctx context.Context, start, end time.Time) ([]models.Rollup, error) {
	if err := q.record(ctx, "daily", start, end); err != nil {
		return nil, err
	}
	return q.rollups, nil
}

func (q *stubQuerier) AggregateMonthly(ctx context.Context, start, end time.Time) ([]models.Rollup, error) {
	if err := q.record(ctx, "monthly", start, end); err != nil {
		return nil, err
	}
	return q.rollups, nil
}

func (q *stubQuerier) AggregateYearly(ctx context.Context, start, end time.Time) ([]models.Rollup, error) {
	if err := q.record(ctx, "yearly", start, end); err != nil {
		return nil, err
	}
	return q.rollups, nil
}

func (q *stubQuerier) lastCall() queryCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.calls) == 0 {
		return queryCall{}
	}
	return q.calls[len(q.calls)-1]
}

var routerNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestRouter(t *testing.T, cache *SnapshotCache, store SnapshotQuerier) *QueryRouter {
	clk := testingclock.NewFakeClock(routerNow)
	return NewQueryRouter(cache, store, time.UTC, 200*time.Millisecond, clk, zaptest.NewLogger(t))
}

func TestResolveWindow(t *testing.T) {
	router := newTestRouter(t, NewSnapshotCache(10), &stubQuerier{})

	tests := []struct {
		token       string
		wantRange   string
		wantStart   time.Time
		granularity models.Granularity
	}{
		{"1h", "1h", routerNow.Add(-time.Hour), models.GranularityRaw},
		{"6h", "6h", routerNow.Add(-6 * time.Hour), models.GranularityRaw},
		{"24h", "24h", routerNow.Add(-24 * time.Hour), models.GranularityRaw},
		{"7d", "7d", time.Date(2024, 6, 8, 10, 30, 0, 0, time.UTC), models.GranularityDaily},
		{"30d", "30d", time.Date(2024, 5, 16, 10, 30, 0, 0, time.UTC), models.GranularityDaily},
		{"6m", "6m", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), models.GranularityMonthly},
		{"1y", "1y", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), models.GranularityMonthly},
		{"3y", "3y", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), models.GranularityYearly},
		{"bogus", "24h", routerNow.Add(-24 * time.Hour), models.GranularityRaw},
		{"", "24h", routerNow.Add(-24 * time.Hour), models.GranularityRaw},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			w := router.ResolveWindow(tt.token)
			assert.Equal(t, tt.wantRange, w.Range)
			assert.True(t, tt.wantStart.Equal(w.Start), "start %v, want %v", w.Start, tt.wantStart)
			assert.True(t, routerNow.Equal(w.End))
			assert.Equal(t, tt.granularity, w.Granularity)
		})
	}
}

func TestResolveWindowUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on Dec 31 is already Jan 1 in UTC+3.
	clk := testingclock.NewFakeClock(time.Date(2023, 12, 31, 22, 30, 0, 0, time.UTC))
	router := NewQueryRouter(nil, nil, loc, time.Second, clk, nil)

	w := router.ResolveWindow("1y")
	assert.True(t, time.Date(2023, 1, 1, 0, 0, 0, 0, loc).Equal(w.Start))
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Granularity
		wantErr bool
	}{
		{"", "", false},
		{"raw", models.GranularityRaw, false},
		{"hourly", models.GranularityRaw, false},
		{"Daily", models.GranularityDaily, false},
		{"monthly", models.GranularityMonthly, false},
		{"yearly", models.GranularityYearly, false},
		{"weekly", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGranularity(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownGranularity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistoryShortRangeServedFromCache(t *testing.T) {
	cache := NewSnapshotCache(DefaultCacheCapacity)
	for i := 9; i >= 0; i-- {
		s := models.Snapshot{CPULoadIndicator: float64(i), ActiveUserCount: 4}
		s.SetTimestamp(routerNow.Add(-time.Duration(i)*5*time.Minute), time.UTC)
		cache.Append(s)
	}
	store := &stubQuerier{}
	router := newTestRouter(t, cache, store)

	points := router.History(context.Background(), "1h", "")
	require.Len(t, points, 10)
	assert.Empty(t, store.calls)
	for i := 1; i < len(points); i++ {
		assert.True(t, points[i].Timestamp.After(points[i-1].Timestamp))
	}
	assert.Equal(t, float64(4), points[0].ActiveUsers)
	assert.Equal(t, int64(1), points[0].DataPoints)
}

func TestHistoryEmptyCacheFallsBackToRangeQuery(t *testing.T) {
	stored := models.Snapshot{ID: "stored", CPULoadIndicator: 12}
	stored.SetTimestamp(routerNow.Add(-3*time.Hour), time.UTC)
	store := &stubQuerier{snaps: []models.Snapshot{stored}}
	router := newTestRouter(t, NewSnapshotCache(10), store)

	points := router.History(context.Background(), "24h", "")
	require.Len(t, points, 1)
	assert.Equal(t, 12.0, points[0].CPUUsage)

	call := store.lastCall()
	assert.Equal(t, "range", call.method)
	assert.True(t, routerNow.Add(-24*time.Hour).Equal(call.start))
	assert.True(t, routerNow.Equal(call.end))
}

func TestHistoryEmptyStoreReturnsEmptySlice(t *testing.T) {
	router := newTestRouter(t, NewSnapshotCache(10), &stubQuerier{})

	points := router.History(context.Background(), "24h", "")
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestHistoryRoutesLongRangesToAggregations(t *testing.T) {
	tests := []struct {
		token  string
		method string
	}{
		{"7d", "daily"},
		{"30d", "daily"},
		{"6m", "monthly"},
		{"1y", "monthly"},
		{"3y", "yearly"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			store := &stubQuerier{}
			router := newTestRouter(t, NewSnapshotCache(10), store)
			router.History(context.Background(), tt.token, "")
			assert.Equal(t, tt.method, store.lastCall().method)
		})
	}
}

func TestHistoryGranularityOverrideKeepsWindow(t *testing.T) {
	cache := NewSnapshotCache(10)
	s := models.Snapshot{}
	s.SetTimestamp(routerNow, time.UTC)
	cache.Append(s)
	store := &stubQuerier{}
	router := newTestRouter(t, cache, store)

	router.History(context.Background(), "7d", models.GranularityRaw)
	call := store.lastCall()
	assert.Equal(t, "range", call.method)
	assert.True(t, time.Date(2024, 6, 8, 10, 30, 0, 0, time.UTC).Equal(call.start))

	router.History(context.Background(), "1h", models.GranularityDaily)
	call = store.lastCall()
	assert.Equal(t, "daily", call.method)
	assert.True(t, routerNow.Add(-time.Hour).Equal(call.start))
}

func TestHistoryNormalizesRollups(t *testing.T) {
	store := &stubQuerier{rollups: []models.Rollup{
		{BucketKey: "2024-01", Year: 2024, Month: 1, AvgCPUUsage: 20.5, AvgMemoryUsage: 41.2, AvgSystemLoad: 0.2049, AvgResponseTime: 204.6, AvgActiveUsers: 3.4, MaxActiveUsers: 7, AvgErrorRate: 1.234, DataPoints: 31},
		{BucketKey: "2024-02", Year: 2024, Month: 2, AvgCPUUsage: 10, DataPoints: 29},
	}}
	router := newTestRouter(t, nil, store)

	points := router.History(context.Background(), "6m", "")
	require.Len(t, points, 2)

	p := points[0]
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(p.Timestamp))
	assert.Equal(t, "2024-01-01", p.Date)
	assert.Equal(t, 21.0, p.CPUUsage)
	assert.Equal(t, 41.0, p.MemoryUsage)
	assert.Equal(t, 0.2, p.SystemLoad)
	assert.Equal(t, 205.0, p.ResponseTime)
	assert.Equal(t, 3.0, p.ActiveUsers)
	assert.Equal(t, int64(7), p.MaxActiveUsers)
	assert.Equal(t, 1.23, p.ErrorRate)
	assert.Equal(t, int64(31), p.DataPoints)
	assert.True(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Equal(points[1].Timestamp))
	assert.Equal(t, "2024-02-01", points[1].Date)
}

func TestHistoryDailyBucketTimestamps(t *testing.T) {
	store := &stubQuerier{rollups: []models.Rollup{{BucketKey: "2024-06-10", Date: "2024-06-10", Year: 2024, Month: 6, DataPoints: 3}}}
	router := newTestRouter(t, nil, store)

	points := router.History(context.Background(), "7d", "")
	require.Len(t, points, 1)
	assert.True(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC).Equal(points[0].Timestamp))
	assert.Equal(t, "2024-06-10", points[0].Date)
}

func TestHistoryStoreFailureReturnsEmpty(t *testing.T) {
	store := &stubQuerier{err: errors.New("database is locked")}
	router := newTestRouter(t, NewSnapshotCache(10), store)

	for _, token := range RangeTokens {
		points := router.History(context.Background(), token, "")
		assert.NotNil(t, points, token)
		assert.Empty(t, points, token)
	}
}

func TestHistorySlowStoreTimesOut(t *testing.T) {
	store := &stubQuerier{block: true}
	router := newTestRouter(t, nil, store)

	start := time.Now()
	points := router.History(context.Background(), "30d", "")
	assert.Empty(t, points)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHistoryWithoutStore(t *testing.T) {
	router := newTestRouter(t, NewSnapshotCache(10), nil)
	assert.Empty(t, router.History(context.Background(), "3y", ""))
}

func TestAllHistoryCoversEveryToken(t *testing.T) {
	router := newTestRouter(t, NewSnapshotCache(10), &stubQuerier{})

	all := router.AllHistory(context.Background())
	require.Len(t, all, len(RangeTokens))
	for _, token := range RangeTokens {
		assert.NotNil(t, all[token], token)
	}
}
