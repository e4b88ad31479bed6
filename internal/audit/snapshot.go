package audit

import (
	"context"
	"sync"
)

type snapshotKey struct{}

// Snapshot accumulates entity details that only the handler knows at the
// time the mutation runs. Middleware installs one per request and reads it
// back after the handler returns.
type Snapshot struct {
	mu         sync.Mutex
	entityType string
	entityID   string
	old        map[string]any
}

// WithSnapshot installs an empty snapshot holder on the context.
func WithSnapshot(ctx context.Context) (context.Context, *Snapshot) {
	s := &Snapshot{}
	return context.WithValue(ctx, snapshotKey{}, s), s
}

func snapshotFromContext(ctx context.Context) *Snapshot {
	s, _ := ctx.Value(snapshotKey{}).(*Snapshot)
	return s
}

// SetEntity records the mutated entity for the request audit entry. Safe to
// call when no snapshot holder is installed.
func SetEntity(ctx context.Context, entityType, entityID string) {
	s := snapshotFromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.entityType = entityType
	s.entityID = entityID
	s.mu.Unlock()
}

// SetOld records the pre-mutation state for the request audit entry.
func SetOld(ctx context.Context, old map[string]any) {
	s := snapshotFromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.old = old
	s.mu.Unlock()
}

// Drain returns the collected entity details and pre-mutation state.
func (s *Snapshot) Drain() (entityType, entityID string, old map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityType, s.entityID, s.old
}
