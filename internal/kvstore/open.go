package kvstore

import (
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// Open builds the backend named by backend. kv is only consulted for BackendNATS.
func Open(backend Backend, path string, kv jetstream.KeyValue) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendNATS:
		if kv == nil {
			return nil, errors.ConfigError("nats storage backend requires nats.url").Build()
		}
		return NewNATSStore(kv), nil
	case BackendSQLite, "":
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, errors.WrapError(err, errors.CategoryStorage, "create storage directory").
					WithContext("path", path).
					Build()
			}
		}
		return NewSQLiteStore(path)
	default:
		return nil, errors.ConfigError("unknown storage backend").
			WithContext("backend", string(backend)).
			Build()
	}
}
