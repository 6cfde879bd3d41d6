package cmd

import (
	"nigrani/internal/config"
	"nigrani/internal/repository"

	"go.uber.org/zap"
)

func openStore(c *config.Config, log *zap.Logger) (*repository.SnapshotRepository, error) {
	return repository.NewSnapshotRepository(repository.Config{
		Path:           c.Database.Path,
		BusyTimeoutMs:  c.Database.BusyTimeoutMs,
		JournalMode:    c.Database.JournalMode,
		MaxConnections: c.Database.MaxConnections,
	}, log.Named("store"))
}
