package domain

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Fee constants in basis-point-like units. A score of 0 maps to MinFee, a
// score of 100 to MaxFee; a stale engine always quotes DefaultFee.
const (
	MinFee     uint64 = 2500
	MaxFee     uint64 = 4400
	DefaultFee uint64 = 3000
	FeeRange          = MaxFee - MinFee
)

const (
	// MaxScore is the upper bound of the sentiment scale (0 = extreme fear,
	// 100 = extreme greed).
	MaxScore uint64 = 100

	// NeutralScore is the initial score of a freshly constructed engine.
	NeutralScore uint64 = 50

	// MaxAlpha is the upper bound of the EMA smoothing weight. The
	// monotone-toward-input guarantee only holds for alpha in [0, MaxAlpha],
	// so setters enforce it.
	MaxAlpha uint64 = 100
)

// MinStalenessThreshold is the smallest accepted staleness threshold. Every
// setter rejects values below it.
const MinStalenessThreshold = time.Hour

// Principal identifies a caller. The engine never interprets principals
// beyond equality; transports decide how requests map onto them.
type Principal string

// Valid reports whether the principal is non-empty.
func (p Principal) Valid() bool { return p != "" }

// Params holds the caller-supplied part of the initial engine configuration.
type Params struct {
	InitialKeeper      Principal
	Alpha              uint64
	StalenessThreshold time.Duration
}

// Engine is the sentiment fee engine: one mutable record guarded by a
// read/write mutex. Mutating operations take the write lock, reads the read
// lock; every operation validates all preconditions before touching state, so
// a failed call leaves the record byte-for-byte unchanged.
type Engine struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	score              uint64
	lastUpdate         time.Time
	alpha              uint64
	stalenessThreshold time.Duration

	owner         Principal
	primaryKeeper Principal
	keepers       map[Principal]struct{}
}

// NewEngine constructs an engine with a neutral score, the initial keeper as
// primary and sole member of the keeper set, and the constructing caller as
// owner.
func NewEngine(owner Principal, p Params, clock clockwork.Clock) (*Engine, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("%w: owner principal is empty", ErrInvalidConfiguration)
	}
	if !p.InitialKeeper.Valid() {
		return nil, fmt.Errorf("%w: initial keeper principal is empty", ErrInvalidConfiguration)
	}
	if p.Alpha > MaxAlpha {
		return nil, fmt.Errorf("%w: alpha %d exceeds %d", ErrInvalidConfiguration, p.Alpha, MaxAlpha)
	}
	if p.StalenessThreshold < MinStalenessThreshold {
		return nil, fmt.Errorf("%w: staleness threshold %s below minimum %s",
			ErrInvalidConfiguration, p.StalenessThreshold, MinStalenessThreshold)
	}

	return &Engine{
		clock:              clock,
		score:              NeutralScore,
		lastUpdate:         clock.Now(),
		alpha:              p.Alpha,
		stalenessThreshold: p.StalenessThreshold,
		owner:              owner,
		primaryKeeper:      p.InitialKeeper,
		keepers:            map[Principal]struct{}{p.InitialKeeper: {}},
	}, nil
}

// UpdateSentiment absorbs a raw score from an authorized keeper and smooths
// it into the stored score:
//
//	score = (raw*alpha + score*(100-alpha)) / 100
//
// in pure integer arithmetic, truncating toward zero. A single update can
// move the score by at most alpha percent of the distance to the raw input,
// which is the manipulation-resistance property of the whole design.
func (e *Engine) UpdateSentiment(caller Principal, raw uint64) (ScoreUpdated, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isKeeperLocked(caller) {
		return ScoreUpdated{}, fmt.Errorf("%w: %q is not an authorized keeper", ErrUnauthorized, caller)
	}
	if raw > MaxScore {
		return ScoreUpdated{}, fmt.Errorf("%w: raw score %d exceeds %d", ErrOutOfRange, raw, MaxScore)
	}

	previous := e.score
	e.score = (raw*e.alpha + previous*(MaxAlpha-e.alpha)) / 100

	// lastUpdate is monotonically non-decreasing even if the host clock jumps
	// backwards.
	now := e.clock.Now()
	if now.After(e.lastUpdate) {
		e.lastUpdate = now
	}

	ev := ScoreUpdated{
		EventMeta: newEventMeta(e.lastUpdate),
		Previous:  previous,
		Raw:       raw,
		Score:     e.score,
	}
	return ev, nil
}

// CurrentFee derives the trading fee from the stored score. A stale engine
// quotes DefaultFee regardless of the stored score; a fresh one interpolates
// linearly between MinFee and MaxFee.
func (e *Engine) CurrentFee() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.isStaleLocked() {
		return DefaultFee
	}
	return MinFee + e.score*FeeRange/100
}

// IsStale reports whether the last accepted update is older than the
// staleness threshold.
func (e *Engine) IsStale() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isStaleLocked()
}

// TimeUntilStale returns how long until the engine goes stale, or zero if it
// already is.
func (e *Engine) TimeUntilStale() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()

	remaining := e.lastUpdate.Add(e.stalenessThreshold).Sub(e.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Score returns the current smoothed sentiment score.
func (e *Engine) Score() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.score
}

// Alpha returns the current EMA smoothing weight.
func (e *Engine) Alpha() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.alpha
}

// StalenessThreshold returns the current staleness threshold.
func (e *Engine) StalenessThreshold() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stalenessThreshold
}

// LastUpdate returns the timestamp of the last accepted update.
func (e *Engine) LastUpdate() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastUpdate
}

// Owner returns the current owner principal.
func (e *Engine) Owner() Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

// PrimaryKeeper returns the current primary keeper.
func (e *Engine) PrimaryKeeper() Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.primaryKeeper
}

// IsKeeper reports whether the principal may submit sentiment updates.
func (e *Engine) IsKeeper(p Principal) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isKeeperLocked(p)
}

// SetKeeperAuthorization adds or removes a keeper. The current primary keeper
// cannot be removed from the set; rotate it out with SetPrimaryKeeper first.
func (e *Engine) SetKeeperAuthorization(caller, keeper Principal, authorized bool) (KeeperAuthorizationChanged, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return KeeperAuthorizationChanged{}, err
	}
	if !keeper.Valid() {
		return KeeperAuthorizationChanged{}, fmt.Errorf("%w: keeper principal is empty", ErrInvalidConfiguration)
	}
	if !authorized && keeper == e.primaryKeeper {
		return KeeperAuthorizationChanged{}, fmt.Errorf("%w: primary keeper %q cannot be deauthorized", ErrInvalidConfiguration, keeper)
	}

	if authorized {
		e.keepers[keeper] = struct{}{}
	} else {
		delete(e.keepers, keeper)
	}

	ev := KeeperAuthorizationChanged{
		EventMeta:  newEventMeta(e.clock.Now()),
		Keeper:     keeper,
		Authorized: authorized,
	}
	return ev, nil
}

// SetPrimaryKeeper rotates the primary keeper: the old primary leaves the
// keeper set, the new one joins it. The primary is always authorized
// afterwards.
func (e *Engine) SetPrimaryKeeper(caller, keeper Principal) (PrimaryKeeperChanged, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return PrimaryKeeperChanged{}, err
	}
	if !keeper.Valid() {
		return PrimaryKeeperChanged{}, fmt.Errorf("%w: keeper principal is empty", ErrInvalidConfiguration)
	}

	previous := e.primaryKeeper
	delete(e.keepers, previous)
	e.keepers[keeper] = struct{}{}
	e.primaryKeeper = keeper

	ev := PrimaryKeeperChanged{
		EventMeta: newEventMeta(e.clock.Now()),
		Previous:  previous,
		Keeper:    keeper,
	}
	return ev, nil
}

// SetAlpha changes the EMA smoothing weight. Values above MaxAlpha are
// rejected: they would break the monotone-toward-input guarantee.
func (e *Engine) SetAlpha(caller Principal, alpha uint64) (AlphaChanged, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return AlphaChanged{}, err
	}
	if alpha > MaxAlpha {
		return AlphaChanged{}, fmt.Errorf("%w: alpha %d exceeds %d", ErrOutOfRange, alpha, MaxAlpha)
	}

	previous := e.alpha
	e.alpha = alpha

	ev := AlphaChanged{
		EventMeta: newEventMeta(e.clock.Now()),
		Previous:  previous,
		Alpha:     alpha,
	}
	return ev, nil
}

// SetStalenessThreshold changes the staleness threshold, rejecting values
// below MinStalenessThreshold.
func (e *Engine) SetStalenessThreshold(caller Principal, threshold time.Duration) (StalenessThresholdChanged, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return StalenessThresholdChanged{}, err
	}
	if threshold < MinStalenessThreshold {
		return StalenessThresholdChanged{}, fmt.Errorf("%w: staleness threshold %s below minimum %s",
			ErrInvalidConfiguration, threshold, MinStalenessThreshold)
	}

	previous := e.stalenessThreshold
	e.stalenessThreshold = threshold

	ev := StalenessThresholdChanged{
		EventMeta: newEventMeta(e.clock.Now()),
		Previous:  previous,
		Threshold: threshold,
	}
	return ev, nil
}

// TransferOwnership hands the owner role to another principal.
func (e *Engine) TransferOwnership(caller, newOwner Principal) (OwnershipTransferred, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return OwnershipTransferred{}, err
	}
	if !newOwner.Valid() {
		return OwnershipTransferred{}, fmt.Errorf("%w: new owner principal is empty", ErrInvalidConfiguration)
	}

	previous := e.owner
	e.owner = newOwner

	ev := OwnershipTransferred{
		EventMeta: newEventMeta(e.clock.Now()),
		Previous:  previous,
		Owner:     newOwner,
	}
	return ev, nil
}

func (e *Engine) isKeeperLocked(p Principal) bool {
	if p == e.primaryKeeper {
		return true
	}
	_, ok := e.keepers[p]
	return ok
}

func (e *Engine) requireOwnerLocked(caller Principal) error {
	if caller != e.owner {
		return fmt.Errorf("%w: %q is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

func (e *Engine) isStaleLocked() bool {
	return e.clock.Now().After(e.lastUpdate.Add(e.stalenessThreshold))
}

// Snapshot is a value copy of all persisted engine state, exactly the fields
// the engine durably owns and nothing else.
type Snapshot struct {
	Score              uint64        `json:"score"`
	LastUpdate         time.Time     `json:"last_update"`
	Alpha              uint64        `json:"alpha"`
	StalenessThreshold time.Duration `json:"staleness_threshold"`
	Owner              Principal     `json:"owner"`
	PrimaryKeeper      Principal     `json:"primary_keeper"`
	Keepers            []Principal   `json:"keepers"`
}

// Snapshot returns a copy of the current persisted state. Keepers are sorted
// so snapshots of identical state compare equal.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keepers := make([]Principal, 0, len(e.keepers))
	for k := range e.keepers {
		keepers = append(keepers, k)
	}
	sort.Slice(keepers, func(i, j int) bool { return keepers[i] < keepers[j] })

	return Snapshot{
		Score:              e.score,
		LastUpdate:         e.lastUpdate,
		Alpha:              e.alpha,
		StalenessThreshold: e.stalenessThreshold,
		Owner:              e.owner,
		PrimaryKeeper:      e.primaryKeeper,
		Keepers:            keepers,
	}
}

// NewEngineFromSnapshot rebuilds an engine from persisted state, enforcing
// the same invariants as NewEngine.
func NewEngineFromSnapshot(snap Snapshot, clock clockwork.Clock) (*Engine, error) {
	if !snap.Owner.Valid() {
		return nil, fmt.Errorf("%w: owner principal is empty", ErrInvalidConfiguration)
	}
	if !snap.PrimaryKeeper.Valid() {
		return nil, fmt.Errorf("%w: primary keeper principal is empty", ErrInvalidConfiguration)
	}
	if snap.Score > MaxScore {
		return nil, fmt.Errorf("%w: score %d exceeds %d", ErrInvalidConfiguration, snap.Score, MaxScore)
	}
	if snap.Alpha > MaxAlpha {
		return nil, fmt.Errorf("%w: alpha %d exceeds %d", ErrInvalidConfiguration, snap.Alpha, MaxAlpha)
	}
	if snap.StalenessThreshold < MinStalenessThreshold {
		return nil, fmt.Errorf("%w: staleness threshold %s below minimum %s",
			ErrInvalidConfiguration, snap.StalenessThreshold, MinStalenessThreshold)
	}

	keepers := make(map[Principal]struct{}, len(snap.Keepers)+1)
	for _, k := range snap.Keepers {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: keeper principal is empty", ErrInvalidConfiguration)
		}
		keepers[k] = struct{}{}
	}
	keepers[snap.PrimaryKeeper] = struct{}{}

	return &Engine{
		clock:              clock,
		score:              snap.Score,
		lastUpdate:         snap.LastUpdate,
		alpha:              snap.Alpha,
		stalenessThreshold: snap.StalenessThreshold,
		owner:              snap.Owner,
		primaryKeeper:      snap.PrimaryKeeper,
		keepers:            keepers,
	}, nil
}
