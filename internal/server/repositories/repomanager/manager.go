// Package repomanager selects the storage backend, owns its process-wide
// connection and vends account repositories bound to it.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
)

// RepositoryManager hands out repositories over a lazily opened connection.
// The first call to Accounts opens the connection; concurrent first callers
// share that attempt and a failure is retried by the next call.
type RepositoryManager interface {
	Accounts(ctx context.Context) (accounts.Repository, error)
	Close(ctx context.Context) error
}

// New returns the manager for cfg.StorageDriver. No connection is made here.
func New(cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		return NewPostgresRepositoryManager(cfg.DatabaseDSN), nil
	case config.StorageMongo:
		return NewMongoRepositoryManager(cfg.MongoURI, cfg.MongoDatabase), nil
	case config.StorageMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
