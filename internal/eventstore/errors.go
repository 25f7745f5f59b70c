package eventstore

import (
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// storeError classifies a database failure during op. The category is
// retryable: SQLite reports a busy database the same way.
func storeError(op string, cause error) error {
	return errors.EventStoreError("event store "+op+" failed").
		WithCause(cause).
		WithContext("op", op).
		Build()
}
