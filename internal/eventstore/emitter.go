package eventstore

import "context"

// Emitter persists events and keeps a projection current.
type Emitter struct {
	store      Store
	projection *SessionHistoryProjection
}

// NewEmitter creates an Emitter. projection may be nil.
func NewEmitter(store Store, projection *SessionHistoryProjection) *Emitter {
	return &Emitter{store: store, projection: projection}
}

// Emit appends event and applies it to the projection once stored.
func (e *Emitter) Emit(ctx context.Context, event *Event) error {
	if e == nil || e.store == nil {
		return nil
	}
	if err := e.store.Append(ctx, event); err != nil {
		return err
	}
	if e.projection != nil {
		e.projection.Apply(event)
	}
	return nil
}

// Projection returns the read model, or nil.
func (e *Emitter) Projection() *SessionHistoryProjection {
	if e == nil {
		return nil
	}
	return e.projection
}
