package domain

import "context"

// StateStore persists engine snapshots so the score survives a restart.
// Load returns (nil, nil) when no snapshot has been saved yet.
type StateStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// EventPublisher delivers domain events to observers and indexers.
// Implementations must not block on slow consumers; a publish failure is the
// publisher's problem, never the engine's.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
