package eventstore

import (
	"context"
	"time"
)

// Store is the append-only session history. Reads return events in append
// order.
type Store interface {
	// Append stores evt and sets evt.Seq. A zero At is recorded as now.
	Append(ctx context.Context, evt *Event) error
	GetBySession(ctx context.Context, sessionID string) ([]*Event, error)
	// GetRange is inclusive on both ends.
	GetRange(ctx context.Context, start, end time.Time) ([]*Event, error)
	Close() error
}
