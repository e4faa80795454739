// Package store provides the key-value persistence used for client state:
// the backend base URL, the theme preference and the authenticated identity.
//
// Several backends are available (TOML file, SQLite, Redis, memory); all of
// them implement Store and are selected with Open.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Well-known keys.
const (
	KeyBaseURL  = "backend.base_url"
	KeyDarkMode = "theme.dark_mode"
	KeyIdentity = "session.identity"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a durable key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Clear removes key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}

// Kind names a store backend.
type Kind string

const (
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
	KindMemory Kind = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Kind      Kind
	Path      string // file and sqlite backends
	RedisURL  string // redis backend
	KeyPrefix string // redis backend (default: "lxassist:")
}

// Open returns the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch Kind(strings.ToLower(string(opts.Kind))) {
	case KindFile, "":
		if opts.Path == "" {
			return nil, errors.New("file store requires a path")
		}
		return NewFileStore(opts.Path)
	case KindSQLite:
		if opts.Path == "" {
			return nil, errors.New("sqlite store requires a path")
		}
		return NewSQLiteStore(ctx, opts.Path)
	case KindRedis:
		if opts.RedisURL == "" {
			return nil, errors.New("redis store requires redis_url")
		}
		return NewRedisStore(ctx, opts.RedisURL, opts.KeyPrefix)
	case KindMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store: %s (expected file, sqlite, redis or memory)", opts.Kind)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key cannot be empty")
	}
	return nil
}
