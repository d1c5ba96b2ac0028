package keeper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Leihyn/sentifee/internal/app"
	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/metrics"
)

// Submitter is the slice of the application service the runner needs.
type Submitter interface {
	UpdateSentiment(ctx context.Context, caller domain.Principal, raw uint64) (app.UpdateResult, error)
	Fee(ctx context.Context) app.FeeQuote
}

// Options configures the runner schedule.
type Options struct {
	Principal domain.Principal
	Interval  time.Duration
	Jitter    time.Duration // random extra delay per tick, spreads load across keepers
	MinDelta  uint64        // skip submission when the aggregate moved less than this
	Limiter   *rate.Limiter // nil means unlimited
	Clock     clockwork.Clock
}

// Runner drives the keeper loop: aggregate, compare against on-chain state,
// submit when the move is worth paying for. Concurrent manual triggers
// collapse into a single run.
type Runner struct {
	submitter  Submitter
	aggregator *Aggregator
	opts       Options
	group      singleflight.Group
}

func NewRunner(submitter Submitter, aggregator *Aggregator, opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Runner{
		submitter:  submitter,
		aggregator: aggregator,
		opts:       opts,
	}
}

// Run loops until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("Keeper runner started",
		"principal", r.opts.Principal,
		"interval", r.opts.Interval,
		"min_delta", r.opts.MinDelta)

	for {
		timer := r.opts.Clock.NewTimer(r.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Keeper runner stopped")
			return ctx.Err()
		case <-timer.Chan():
		}

		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Keeper run failed", "error", err)
		}
	}
}

func (r *Runner) nextDelay() time.Duration {
	delay := r.opts.Interval
	if r.opts.Jitter > 0 {
		delay += rand.N(r.opts.Jitter)
	}
	return delay
}

// RunOnce performs a single aggregate-and-submit cycle. Overlapping calls
// share one execution and its result.
func (r *Runner) RunOnce(ctx context.Context) (uint64, error) {
	v, err, _ := r.group.Do("run", func() (any, error) {
		return r.runOnce(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

func (r *Runner) runOnce(ctx context.Context) (uint64, error) {
	quote := r.submitter.Fee(ctx)
	aggregate, reachable := r.aggregator.Aggregate(ctx)

	// A tiny move on a fresh engine is not worth a submission; a stale engine
	// gets refreshed regardless, since any update beats the default fee.
	if !quote.Stale && absDiff(aggregate, quote.Score) < r.opts.MinDelta {
		metrics.KeeperRunsTotal.WithLabelValues("skipped").Inc()
		slog.Debug("Skipping submission, aggregate within minimum delta",
			"aggregate", aggregate, "current", quote.Score, "min_delta", r.opts.MinDelta)
		return quote.Score, nil
	}

	if r.opts.Limiter != nil {
		if err := r.opts.Limiter.Wait(ctx); err != nil {
			metrics.KeeperRunsTotal.WithLabelValues("failed").Inc()
			return 0, fmt.Errorf("submission rate limiter: %w", err)
		}
	}

	result, err := r.submitter.UpdateSentiment(ctx, r.opts.Principal, aggregate)
	if err != nil {
		metrics.KeeperRunsTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("submit aggregate %d: %w", aggregate, err)
	}

	metrics.KeeperRunsTotal.WithLabelValues("submitted").Inc()
	slog.Info("Submitted sentiment aggregate",
		"raw", aggregate,
		"score", result.Score,
		"fee", result.Fee,
		"sources", reachable)
	return result.Score, nil
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
