package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a notification emitted by a successful mutating engine operation.
// The engine returns events to its caller; the application layer is
// responsible for publishing them. Delivery is fire-and-forget: engine
// correctness never depends on an event being observed.
type Event interface {
	Kind() string
	EventID() uuid.UUID
	OccurredAt() time.Time
}

// EventMeta carries the identity and timestamp shared by all events.
type EventMeta struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"at"`
}

func (m EventMeta) EventID() uuid.UUID    { return m.ID }
func (m EventMeta) OccurredAt() time.Time { return m.At }

func newEventMeta(at time.Time) EventMeta {
	return EventMeta{ID: uuid.New(), At: at}
}

// ScoreUpdated records an accepted sentiment update: the score before
// smoothing, the raw keeper input, and the new smoothed score.
type ScoreUpdated struct {
	EventMeta
	Previous uint64 `json:"previous"`
	Raw      uint64 `json:"raw"`
	Score    uint64 `json:"score"`
}

func (ScoreUpdated) Kind() string { return "score_updated" }

// KeeperAuthorizationChanged records a keeper being added to or removed from
// the keeper set.
type KeeperAuthorizationChanged struct {
	EventMeta
	Keeper     Principal `json:"keeper"`
	Authorized bool      `json:"authorized"`
}

func (KeeperAuthorizationChanged) Kind() string { return "keeper_authorization_changed" }

// PrimaryKeeperChanged records a primary keeper rotation.
type PrimaryKeeperChanged struct {
	EventMeta
	Previous Principal `json:"previous"`
	Keeper   Principal `json:"keeper"`
}

func (PrimaryKeeperChanged) Kind() string { return "primary_keeper_changed" }

// AlphaChanged records a smoothing weight change.
type AlphaChanged struct {
	EventMeta
	Previous uint64 `json:"previous"`
	Alpha    uint64 `json:"alpha"`
}

func (AlphaChanged) Kind() string { return "alpha_changed" }

// StalenessThresholdChanged records a staleness threshold change.
type StalenessThresholdChanged struct {
	EventMeta
	Previous  time.Duration `json:"previous"`
	Threshold time.Duration `json:"threshold"`
}

func (StalenessThresholdChanged) Kind() string { return "staleness_threshold_changed" }

// OwnershipTransferred records an ownership handover.
type OwnershipTransferred struct {
	EventMeta
	Previous Principal `json:"previous"`
	Owner    Principal `json:"owner"`
}

func (OwnershipTransferred) Kind() string { return "ownership_transferred" }
