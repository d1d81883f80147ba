// Package storage provides the key-value backends that persist the client
// session between runs, the way a browser's local storage does for a web
// client. Every value is a plain string stored under its own key.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/centennial-infotech/portal/internal/errors"
)

// KV is a string key-value store. Implementations must be safe for
// concurrent use.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any held resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Path      string
	Namespace string
	Redis     RedisConfig
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg Config) (KV, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		kv, err := NewFileKV(cfg.Path)
		if err != nil {
			return nil, errors.NewStorageError(BackendFile, err)
		}
		return kv, nil
	case BackendRedis:
		kv, err := NewRedisKV(ctx, cfg.Redis, cfg.Namespace)
		if err != nil {
			return nil, errors.NewStorageError(BackendRedis, err)
		}
		return kv, nil
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, errors.NewConfigInvalidError("storage.backend", fmt.Sprintf("unknown backend %q (want file, redis or memory)", cfg.Backend))
	}
}
