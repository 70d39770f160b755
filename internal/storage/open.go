package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/service"
)

// Supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options selects and configures a repository.
type Options struct {
	Driver       string
	DatabasePath string
	RedisAddr    string
	RedisTTL     time.Duration
}

// Open returns a ready-to-use repository for the configured driver. SQLite
// databases are migrated before they are returned.
func Open(ctx context.Context, opts Options) (service.Repository, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		store, err := NewSQLiteStorage(opts.DatabasePath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return store, nil
	case DriverRedis:
		return NewRedisStorage(ctx, opts.RedisAddr, opts.RedisTTL)
	case DriverMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", common.ErrInvalidConfig, opts.Driver)
	}
}
