package keeper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	name   string
	weight uint64
	score  uint64
	err    error
}

func (f *fakeSource) Name() string   { return f.name }
func (f *fakeSource) Weight() uint64 { return f.weight }

func (f *fakeSource) Fetch(context.Context) (uint64, error) {
	return f.score, f.err
}

func TestAggregate_WeightedMean(t *testing.T) {
	agg := NewAggregator([]Source{
		&fakeSource{name: "a", weight: 3, score: 80},
		&fakeSource{name: "b", weight: 1, score: 20},
	})

	score, reachable := agg.Aggregate(context.Background())
	// (80*3 + 20*1) / 4 = 65
	assert.Equal(t, uint64(65), score)
	assert.Equal(t, 2, reachable)
}

func TestAggregate_TruncatesTowardZero(t *testing.T) {
	agg := NewAggregator([]Source{
		&fakeSource{name: "a", weight: 1, score: 50},
		&fakeSource{name: "b", weight: 2, score: 33},
	})

	score, _ := agg.Aggregate(context.Background())
	// (50 + 66) / 3 = 38.67 -> 38
	assert.Equal(t, uint64(38), score)
}

func TestAggregate_FailedSourceWeightRedistributes(t *testing.T) {
	agg := NewAggregator([]Source{
		&fakeSource{name: "a", weight: 5, score: 0, err: errors.New("timeout")},
		&fakeSource{name: "b", weight: 1, score: 70},
		&fakeSource{name: "c", weight: 1, score: 30},
	})

	score, reachable := agg.Aggregate(context.Background())
	assert.Equal(t, uint64(50), score)
	assert.Equal(t, 2, reachable)
}

func TestAggregate_AllFailFallsBackToNeutral(t *testing.T) {
	agg := NewAggregator([]Source{
		&fakeSource{name: "a", weight: 1, err: errors.New("timeout")},
		&fakeSource{name: "b", weight: 1, err: errors.New("refused")},
	})

	score, reachable := agg.Aggregate(context.Background())
	assert.Equal(t, uint64(50), score)
	assert.Zero(t, reachable)
}

func TestAggregate_SingleSource(t *testing.T) {
	agg := NewAggregator([]Source{
		&fakeSource{name: "only", weight: 7, score: 91},
	})

	score, reachable := agg.Aggregate(context.Background())
	assert.Equal(t, uint64(91), score)
	assert.Equal(t, 1, reachable)
}
