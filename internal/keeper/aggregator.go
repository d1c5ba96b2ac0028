package keeper

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/metrics"
)

// Aggregator combines readings from all configured sources into a single raw
// score. Failed sources drop out of the weighted mean, which redistributes
// their weight across the reachable ones; if nothing is reachable the
// aggregate falls back to the neutral score.
type Aggregator struct {
	sources []Source
}

func NewAggregator(sources []Source) *Aggregator {
	return &Aggregator{sources: sources}
}

type reading struct {
	score  uint64
	weight uint64
	err    error
}

// Aggregate fetches all sources concurrently and returns the weighted integer
// mean of the successful readings, plus how many sources contributed.
func (a *Aggregator) Aggregate(ctx context.Context) (uint64, int) {
	readings := make([]reading, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			score, err := src.Fetch(ctx)
			readings[i] = reading{score: score, weight: src.Weight(), err: err}
		}()
	}
	wg.Wait()

	var weightedSum, totalWeight uint64
	reachable := 0
	for i, r := range readings {
		if r.err != nil {
			metrics.KeeperSourceFailures.WithLabelValues(a.sources[i].Name()).Inc()
			slog.Warn("Signal source failed", "source", a.sources[i].Name(), "error", r.err)
			continue
		}
		weightedSum += r.score * r.weight
		totalWeight += r.weight
		reachable++
	}

	if totalWeight == 0 {
		slog.Warn("All signal sources failed, falling back to neutral score")
		return domain.NeutralScore, 0
	}
	return weightedSum / totalWeight, reachable
}
