package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ruminaider/profilepop/internal/config"
	"github.com/ruminaider/profilepop/internal/paths"
	"github.com/spf13/afero"
)

// Open builds the Store selected by cfg.Backend. Paths default to the data
// directory when cfg.Path is empty.
func Open(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil

	case config.BackendFile, "":
		path := cfg.Path
		if path == "" {
			path = paths.StateFile()
		}
		return NewFileStore(afero.NewOsFs(), path)

	case config.BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = paths.DatabaseFile()
		}
		return NewSQLiteStore(path)

	case config.BackendRedis:
		store := NewRedisStore(NewRedisPool(cfg.RedisAddr), cfg.RedisPrefix)
		err := retry.Do(
			func() error { return store.Ping(ctx) },
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(200*time.Millisecond),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
