package kvstore

import (
	"context"
	stderrors "errors"

	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// NATSStore implements Store on a JetStream key-value bucket.
type NATSStore struct {
	kv jetstream.KeyValue
}

// NewNATSStore wraps an opened bucket. The connection is owned by the caller.
func NewNATSStore(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

func (n *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, key)
	if stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "get kv entry").
			WithContext("key", key).
			WithContext("bucket", n.kv.Bucket()).
			Build()
	}
	return entry.Value(), nil
}

func (n *NATSStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := n.kv.Put(ctx, key, value); err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "put kv entry").
			WithContext("key", key).
			WithContext("bucket", n.kv.Bucket()).
			Build()
	}
	return nil
}

func (n *NATSStore) Close() error { return nil }
