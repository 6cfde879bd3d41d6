package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"nigrani/internal/models"
	"nigrani/internal/safemath"
	"nigrani/internal/telemetry"
)

var ErrUnknownGranularity = errors.New("unknown granularity")

// DefaultRange is used for unknown range tokens.
const DefaultRange = "24h"

// RangeTokens lists the supported range tokens, shortest first.
var RangeTokens = []string{"1h", "6h", "24h", "7d", "30d", "6m", "1y", "3y"}

// SnapshotQuerier is the read side of the long-term store.
type SnapshotQuerier interface {
	RangeQuery(ctx context.Context, start, end time.Time) ([]models.Snapshot, error)
	AggregateDaily(ctx context.Context, start, end time.Time) ([]models.Rollup, error)
	AggregateMonthly(ctx context.Context, start, end time.Time) ([]models.Rollup, error)
	AggregateYearly(ctx context.Context, start, end time.Time) ([]models.Rollup, error)
}

// ParseGranularity parses an override. The empty string means "use the
// range default" and is returned unchanged; "hourly" is an alias for raw.
func ParseGranularity(s string) (models.Granularity, error) {
	switch g := strings.ToLower(strings.TrimSpace(s)); g {
	case "":
		return "", nil
	case "raw", "hourly":
		return models.GranularityRaw, nil
	case "daily":
		return models.GranularityDaily, nil
	case "monthly":
		return models.GranularityMonthly, nil
	case "yearly":
		return models.GranularityYearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

// QueryRouter answers history requests from whichever source is cheapest
// for the requested range and normalizes the result.
type QueryRouter struct {
	cache    *SnapshotCache
	store    SnapshotQuerier
	clock    clock.PassiveClock
	location *time.Location
	timeout  time.Duration
	logger   *zap.Logger
}

// NewQueryRouter creates a router. Calendar-aligned windows are computed in
// loc. Each store lookup is bounded by timeout.
func NewQueryRouter(cache *SnapshotCache, store SnapshotQuerier, loc *time.Location, timeout time.Duration, clk clock.PassiveClock, logger *zap.Logger) *QueryRouter {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryRouter{
		cache:    cache,
		store:    store,
		clock:    clk,
		location: loc,
		timeout:  timeout,
		logger:   logger,
	}
}

// ResolveWindow maps a range token to its window and default granularity.
// Unknown tokens resolve as DefaultRange.
func (r *QueryRouter) ResolveWindow(token string) models.HistoryWindow {
	now := r.clock.Now().In(r.location)
	w := models.HistoryWindow{Range: token, End: now}

	switch token {
	case "1h":
		w.Start, w.Granularity = now.Add(-time.Hour), models.GranularityRaw
	case "6h":
		w.Start, w.Granularity = now.Add(-6*time.Hour), models.GranularityRaw
	case "24h":
		w.Start, w.Granularity = now.Add(-24*time.Hour), models.GranularityRaw
	case "7d":
		w.Start, w.Granularity = now.AddDate(0, 0, -7), models.GranularityDaily
	case "30d":
		w.Start, w.Granularity = now.AddDate(0, 0, -30), models.GranularityDaily
	case "6m":
		w.Start = time.Date(now.Year(), now.Month()-6, 1, 0, 0, 0, 0, r.location)
		w.Granularity = models.GranularityMonthly
	case "1y":
		w.Start = time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, r.location)
		w.Granularity = models.GranularityMonthly
	case "3y":
		w.Start = time.Date(now.Year()-3, time.January, 1, 0, 0, 0, 0, r.location)
		w.Granularity = models.GranularityYearly
	default:
		return r.ResolveWindow(DefaultRange)
	}
	return w
}

func isShortRange(token string) bool {
	return token == "1h" || token == "6h" || token == "24h"
}

// History returns the normalized history for token. A non-empty
// granularity overrides the range default; the window is unchanged. Any
// lookup failure yields an empty, non-nil slice.
func (r *QueryRouter) History(ctx context.Context, token string, granularity models.Granularity) []models.HistoryPoint {
	w := r.ResolveWindow(token)
	if granularity != "" {
		w.Granularity = granularity
	}

	points, source, err := r.lookup(ctx, w)
	if err != nil {
		telemetry.HistoryQueriesTotal.WithLabelValues("empty").Inc()
		r.logger.Warn("History lookup failed",
			zap.String("range", w.Range),
			zap.String("granularity", string(w.Granularity)),
			zap.Error(err),
		)
		return []models.HistoryPoint{}
	}
	telemetry.HistoryQueriesTotal.WithLabelValues(source).Inc()
	return points
}

func (r *QueryRouter) lookup(ctx context.Context, w models.HistoryWindow) ([]models.HistoryPoint, string, error) {
	if w.Granularity == models.GranularityRaw && isShortRange(w.Range) && r.cache != nil && r.cache.Len() > 0 {
		return r.fromSnapshots(r.cache.Query(w.Start)), "cache", nil
	}
	if r.store == nil {
		return nil, "", errors.New("no long-term store configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		rollups []models.Rollup
		err     error
	)
	switch w.Granularity {
	case models.GranularityRaw:
		snaps, err := r.store.RangeQuery(ctx, w.Start, w.End)
		if err != nil {
			return nil, "", err
		}
		return r.fromSnapshots(snaps), "raw", nil
	case models.GranularityDaily:
		rollups, err = r.store.AggregateDaily(ctx, w.Start, w.End)
	case models.GranularityMonthly:
		rollups, err = r.store.AggregateMonthly(ctx, w.Start, w.End)
	case models.GranularityYearly:
		rollups, err = r.store.AggregateYearly(ctx, w.Start, w.End)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownGranularity, w.Granularity)
	}
	if err != nil {
		return nil, "", err
	}
	return r.fromRollups(rollups, w.Granularity), string(w.Granularity), nil
}

// AllHistory returns the default history of every range token.
func (r *QueryRouter) AllHistory(ctx context.Context) map[string][]models.HistoryPoint {
	out := make(map[string][]models.HistoryPoint, len(RangeTokens))
	for _, token := range RangeTokens {
		out[token] = r.History(ctx, token, "")
	}
	return out
}

func (r *QueryRouter) fromSnapshots(snaps []models.Snapshot) []models.HistoryPoint {
	out := make([]models.HistoryPoint, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, models.HistoryPoint{
			Timestamp:      s.Timestamp,
			Date:           s.Date,
			CPUUsage:       s.CPULoadIndicator,
			MemoryUsage:    s.MemoryUsagePercent,
			SystemLoad:     s.SystemLoadIndicator,
			ResponseTime:   s.AverageResponseTimeMillis,
			ActiveUsers:    float64(s.ActiveUserCount),
			MaxActiveUsers: s.ActiveUserCount,
			ErrorRate:      s.ErrorRatePercent,
			DataPoints:     1,
		})
	}
	return out
}

func (r *QueryRouter) fromRollups(rollups []models.Rollup, g models.Granularity) []models.HistoryPoint {
	out := make([]models.HistoryPoint, 0, len(rollups))
	for _, b := range rollups {
		start := r.bucketStart(b, g)
		date := b.Date
		if date == "" && !start.IsZero() {
			date = start.Format(models.DateLayout)
		}
		out = append(out, models.HistoryPoint{
			Timestamp:      start,
			Date:           date,
			CPUUsage:       math.Round(b.AvgCPUUsage),
			MemoryUsage:    math.Round(b.AvgMemoryUsage),
			SystemLoad:     safemath.Round(b.AvgSystemLoad, 2),
			ResponseTime:   math.Round(b.AvgResponseTime),
			ActiveUsers:    math.Round(b.AvgActiveUsers),
			MaxActiveUsers: b.MaxActiveUsers,
			ErrorRate:      safemath.Round(b.AvgErrorRate, 2),
			DataPoints:     b.DataPoints,
		})
	}
	return out
}

func (r *QueryRouter) bucketStart(b models.Rollup, g models.Granularity) time.Time {
	switch g {
	case models.GranularityDaily:
		if t, err := time.ParseInLocation(models.DateLayout, b.Date, r.location); err == nil {
			return t
		}
		return time.Time{}
	case models.GranularityMonthly:
		return time.Date(b.Year, time.Month(b.Month), 1, 0, 0, 0, 0, r.location)
	default:
		return time.Date(b.Year, time.January, 1, 0, 0, 0, 0, r.location)
	}
}
