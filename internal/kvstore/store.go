// Package kvstore provides the key-value backends that persist settings and stats.
//
// Values are opaque JSON documents addressed by key. Backends: sqlite (default),
// NATS JetStream KV, and an in-memory map for tests and ephemeral runs.
package kvstore

import (
	"context"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// Store reads and writes values by key.
type Store interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// ErrNotFound reports a missing key.
var ErrNotFound = errors.NotFoundError("key not found").Build()

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendNATS   Backend = "nats"
	BackendMemory Backend = "memory"
)

func notFound(key string) error {
	return errors.WrapError(ErrNotFound, errors.CategoryNotFound, "key not found").
		WithContext("key", key).
		Build()
}
