package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/metrics"
)

const persistTimeout = 2 * time.Second

// Service orchestrates the engine with its adapters. Engine mutations are the
// source of truth: snapshot persistence and event delivery run best-effort
// after the fact and never roll an accepted update back.
type Service struct {
	engine    *domain.Engine
	store     domain.StateStore
	publisher domain.EventPublisher
	clock     clockwork.Clock
}

// NewService creates the application layer service. store and publisher may
// be nil in tests.
func NewService(engine *domain.Engine, store domain.StateStore, publisher domain.EventPublisher, clock clockwork.Clock) *Service {
	return &Service{
		engine:    engine,
		store:     store,
		publisher: publisher,
		clock:     clock,
	}
}

// RestoreEngine loads the last persisted snapshot, falling back to a fresh
// engine built from configuration when none exists.
func RestoreEngine(ctx context.Context, store domain.StateStore, owner domain.Principal, params domain.Params, clock clockwork.Clock) (*domain.Engine, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		slog.Info("No engine snapshot found, starting fresh",
			"owner", owner, "initial_keeper", params.InitialKeeper)
		return domain.NewEngine(owner, params, clock)
	}

	engine, err := domain.NewEngineFromSnapshot(*snap, clock)
	if err != nil {
		return nil, err
	}
	slog.Info("Engine restored from snapshot", "score", snap.Score, "last_update", snap.LastUpdate)
	return engine, nil
}

// UpdateResult is the outcome of an accepted sentiment update.
type UpdateResult struct {
	Previous uint64
	Raw      uint64
	Score    uint64
	Fee      uint64
	At       time.Time
}

// UpdateSentiment submits a raw score on behalf of caller.
func (s *Service) UpdateSentiment(ctx context.Context, caller domain.Principal, raw uint64) (UpdateResult, error) {
	ev, err := s.engine.UpdateSentiment(caller, raw)
	if err != nil {
		metrics.UpdatesTotal.WithLabelValues(updateOutcome(err)).Inc()
		return UpdateResult{}, err
	}

	metrics.UpdatesTotal.WithLabelValues("accepted").Inc()
	metrics.SentimentScore.Set(float64(ev.Score))
	fee := s.engine.CurrentFee()
	metrics.CurrentFee.Set(float64(fee))

	s.persistAndPublish(ctx, ev)

	return UpdateResult{
		Previous: ev.Previous,
		Raw:      ev.Raw,
		Score:    ev.Score,
		Fee:      fee,
		At:       ev.OccurredAt(),
	}, nil
}

// FeeQuote is the hot-path read consumed by the host pool before each trade.
type FeeQuote struct {
	Fee            uint64
	Score          uint64
	Stale          bool
	TimeUntilStale time.Duration
}

// Fee returns the current fee quote. It never fails.
func (s *Service) Fee(ctx context.Context) FeeQuote {
	quote := FeeQuote{
		Fee:            s.engine.CurrentFee(),
		Score:          s.engine.Score(),
		Stale:          s.engine.IsStale(),
		TimeUntilStale: s.engine.TimeUntilStale(),
	}

	if quote.Stale {
		metrics.EngineStale.Set(1)
	} else {
		metrics.EngineStale.Set(0)
	}
	return quote
}

// StateView is the operator-facing view of the full engine state.
type StateView struct {
	Score              uint64
	LastUpdate         time.Time
	Alpha              uint64
	StalenessThreshold time.Duration
	Stale              bool
	Owner              domain.Principal
	PrimaryKeeper      domain.Principal
	Keepers            []domain.Principal
}

// State returns the full engine state for operators.
func (s *Service) State(ctx context.Context) StateView {
	snap := s.engine.Snapshot()
	return StateView{
		Score:              snap.Score,
		LastUpdate:         snap.LastUpdate,
		Alpha:              snap.Alpha,
		StalenessThreshold: snap.StalenessThreshold,
		Stale:              s.engine.IsStale(),
		Owner:              snap.Owner,
		PrimaryKeeper:      snap.PrimaryKeeper,
		Keepers:            snap.Keepers,
	}
}

// SetKeeperAuthorization adds or removes a keeper on behalf of caller.
func (s *Service) SetKeeperAuthorization(ctx context.Context, caller, keeper domain.Principal, authorized bool) error {
	ev, err := s.engine.SetKeeperAuthorization(caller, keeper, authorized)
	if err != nil {
		return err
	}
	s.afterAdminChange(ctx, ev)
	return nil
}

// SetPrimaryKeeper rotates the primary keeper on behalf of caller.
func (s *Service) SetPrimaryKeeper(ctx context.Context, caller, keeper domain.Principal) error {
	ev, err := s.engine.SetPrimaryKeeper(caller, keeper)
	if err != nil {
		return err
	}
	s.afterAdminChange(ctx, ev)
	return nil
}

// SetAlpha changes the smoothing weight on behalf of caller.
func (s *Service) SetAlpha(ctx context.Context, caller domain.Principal, alpha uint64) error {
	ev, err := s.engine.SetAlpha(caller, alpha)
	if err != nil {
		return err
	}
	s.afterAdminChange(ctx, ev)
	return nil
}

// SetStalenessThreshold changes the staleness threshold on behalf of caller.
func (s *Service) SetStalenessThreshold(ctx context.Context, caller domain.Principal, threshold time.Duration) error {
	ev, err := s.engine.SetStalenessThreshold(caller, threshold)
	if err != nil {
		return err
	}
	s.afterAdminChange(ctx, ev)
	return nil
}

// TransferOwnership hands the owner role to another principal.
func (s *Service) TransferOwnership(ctx context.Context, caller, newOwner domain.Principal) error {
	ev, err := s.engine.TransferOwnership(caller, newOwner)
	if err != nil {
		return err
	}
	s.afterAdminChange(ctx, ev)
	return nil
}

func (s *Service) afterAdminChange(ctx context.Context, ev domain.Event) {
	metrics.AdminChangesTotal.WithLabelValues(ev.Kind()).Inc()
	s.persistAndPublish(ctx, ev)
}

func (s *Service) persistAndPublish(ctx context.Context, ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if s.store != nil {
		if err := s.store.Save(ctx, s.engine.Snapshot()); err != nil {
			metrics.SnapshotSaveFailures.Inc()
			slog.ErrorContext(ctx, "Failed to persist engine snapshot", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			slog.WarnContext(ctx, "Failed to publish domain event", "kind", ev.Kind(), "error", err)
		}
	}
}

func updateOutcome(err error) string {
	if errors.Is(err, domain.ErrUnauthorized) {
		return "unauthorized"
	}
	return "out_of_range"
}
