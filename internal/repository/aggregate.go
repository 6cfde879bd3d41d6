package repository

import (
	"context"
	"fmt"
	"time"

	"nigrani/internal/models"
)

const rollupColumns = `
	AVG(cpu_load)           AS avg_cpu,
	MAX(cpu_load)           AS max_cpu,
	MIN(cpu_load)           AS min_cpu,
	AVG(memory_usage)       AS avg_memory,
	MAX(memory_usage)       AS max_memory,
	MIN(memory_usage)       AS min_memory,
	AVG(system_load)        AS avg_load,
	MAX(system_load)        AS max_load,
	MIN(system_load)        AS min_load,
	AVG(response_time)      AS avg_response,
	MAX(response_time)      AS max_response,
	MIN(response_time)      AS min_response,
	SUM(active_connections) AS total_active_connections,
	AVG(active_users)       AS avg_active_users,
	MAX(active_users)       AS max_active_users,
	AVG(error_rate)         AS avg_error_rate,
	COUNT(*)                AS data_points`

// Each grouping reads through idx_snapshots_timestamp for the window and
// groups on the denormalized calendar columns.
var (
	dailyRollupSQL = `
		SELECT date AS bucket_key, date, MIN(year) AS year, MIN(month) AS month,` + rollupColumns + `
		FROM system_snapshots
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY date
		ORDER BY date ASC`

	monthlyRollupSQL = `
		SELECT printf('%04d-%02d', year, month) AS bucket_key, printf('%04d-%02d-01', year, month) AS date, year, month,` + rollupColumns + `
		FROM system_snapshots
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY year, month
		ORDER BY year ASC, month ASC`

	yearlyRollupSQL = `
		SELECT CAST(year AS TEXT) AS bucket_key, printf('%04d-01-01', year) AS date, year, 0 AS month,` + rollupColumns + `
		FROM system_snapshots
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY year
		ORDER BY year ASC`
)

// AggregateDaily groups snapshots in [start, end] by calendar day.
func (r *SnapshotRepository) AggregateDaily(ctx context.Context, start, end time.Time) ([]models.Rollup, error) {
	return r.aggregate(ctx, "daily", dailyRollupSQL, start, end)
}

// AggregateMonthly groups snapshots in [start, end] by (year, month).
func (r *SnapshotRepository) AggregateMonthly(ctx context.Context, start, end time.Time) ([]models.Rollup, error) {
	return r.aggregate(ctx, "monthly", monthlyRollupSQL, start, end)
}

// AggregateYearly groups snapshots in [start, end] by year.
func (r *SnapshotRepository) AggregateYearly(ctx context.Context, start, end time.Time) ([]models.Rollup, error) {
	return r.aggregate(ctx, "yearly", yearlyRollupSQL, start, end)
}

func (r *SnapshotRepository) aggregate(ctx context.Context, name, query string, start, end time.Time) ([]models.Rollup, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var rows []rollupRow
	if err := r.db.SelectContext(ctx, &rows, query, start.UnixMilli(), end.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to aggregate %s snapshots: %w", name, err)
	}

	out := make([]models.Rollup, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
