package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"nigrani/internal/models"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

var ErrClosed = errors.New("snapshot repository is closed")

// Config configures the SQLite snapshot store.
type Config struct {
	Path           string
	BusyTimeoutMs  int
	JournalMode    string
	MaxConnections int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Path:           "nigrani.db",
		BusyTimeoutMs:  5000,
		JournalMode:    "WAL",
		MaxConnections: 4,
	}
}

// SnapshotRepository is the append-only long-term snapshot store.
type SnapshotRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewSnapshotRepository opens (or creates) the database at cfg.Path and
// applies the schema.
func NewSnapshotRepository(cfg Config, logger *zap.Logger) (*SnapshotRepository, error) {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.BusyTimeoutMs <= 0 {
		cfg.BusyTimeoutMs = def.BusyTimeoutMs
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = def.JournalMode
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = def.MaxConnections
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeoutMs, cfg.JournalMode)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Snapshot store opened", zap.String("path", cfg.Path))
	return &SnapshotRepository{db: db, logger: logger}, nil
}

func (r *SnapshotRepository) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the database handle.
func (r *SnapshotRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

// Ping runs a trivial query against the database.
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	var one int
	if err := r.db.QueryRowxContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("failed to ping store: %w", err)
	}
	return nil
}

// Insert persists a snapshot. Re-inserting a snapshot with the same ID is
// a no-op, so retried writes never duplicate a record.
func (r *SnapshotRepository) Insert(ctx context.Context, s models.Snapshot) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if s.ID == "" {
		return fmt.Errorf("snapshot has no id")
	}

	row := toRow(s)
	row.CreatedAt = time.Now().UnixMilli()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT OR IGNORE INTO system_snapshots (
			id, timestamp, date, hour, day_of_week, month, year,
			cpu_load, memory_usage, disk_usage, system_load, response_time,
			active_connections, total_memory_gb, free_memory_gb, uptime_seconds,
			active_users, total_users, error_rate, error_count, created_at
		) VALUES (
			:id, :timestamp, :date, :hour, :day_of_week, :month, :year,
			:cpu_load, :memory_usage, :disk_usage, :system_load, :response_time,
			:active_connections, :total_memory_gb, :free_memory_gb, :uptime_seconds,
			:active_users, :total_users, :error_rate, :error_count, :created_at
		)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// RangeQuery returns every snapshot with start <= timestamp <= end in
// ascending timestamp order.
func (r *SnapshotRepository) RangeQuery(ctx context.Context, start, end time.Time) ([]models.Snapshot, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var rows []snapshotRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+snapshotColumns+`
		FROM system_snapshots
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot range: %w", err)
	}

	out := make([]models.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// DeleteOlderThan removes every snapshot with timestamp < cutoff and
// returns how many rows were removed.
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM system_snapshots WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted snapshots: %w", err)
	}
	return n, nil
}

// Count returns the number of stored snapshots.
func (r *SnapshotRepository) Count(ctx context.Context) (int64, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM system_snapshots`); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}
