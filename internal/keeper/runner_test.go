package keeper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leihyn/sentifee/internal/app"
	"github.com/Leihyn/sentifee/internal/domain"
)

type fakeSubmitter struct {
	quote       app.FeeQuote
	submitted   []uint64
	submitErr   error
	resultScore uint64
}

func (f *fakeSubmitter) UpdateSentiment(_ context.Context, _ domain.Principal, raw uint64) (app.UpdateResult, error) {
	if f.submitErr != nil {
		return app.UpdateResult{}, f.submitErr
	}
	f.submitted = append(f.submitted, raw)
	return app.UpdateResult{Raw: raw, Score: f.resultScore}, nil
}

func (f *fakeSubmitter) Fee(context.Context) app.FeeQuote {
	return f.quote
}

func newRunner(submitter Submitter, sources []Source, minDelta uint64) *Runner {
	return NewRunner(submitter, NewAggregator(sources), Options{
		Principal: "keeper-1",
		MinDelta:  minDelta,
	})
}

func TestRunOnce_SubmitsWhenDeltaLargeEnough(t *testing.T) {
	submitter := &fakeSubmitter{
		quote:       app.FeeQuote{Score: 50, Stale: false},
		resultScore: 56,
	}
	runner := newRunner(submitter, []Source{&fakeSource{name: "a", weight: 1, score: 70}}, 2)

	score, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(56), score)
	assert.Equal(t, []uint64{70}, submitter.submitted)
}

func TestRunOnce_SkipsSmallMoveOnFreshEngine(t *testing.T) {
	submitter := &fakeSubmitter{
		quote: app.FeeQuote{Score: 70, Stale: false},
	}
	runner := newRunner(submitter, []Source{&fakeSource{name: "a", weight: 1, score: 71}}, 2)

	score, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(70), score)
	assert.Empty(t, submitter.submitted)
}

func TestRunOnce_StaleEngineAlwaysRefreshed(t *testing.T) {
	submitter := &fakeSubmitter{
		quote:       app.FeeQuote{Score: 70, Stale: true},
		resultScore: 70,
	}
	runner := newRunner(submitter, []Source{&fakeSource{name: "a", weight: 1, score: 70}}, 2)

	_, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{70}, submitter.submitted)
}

func TestRunOnce_AllSourcesFailSubmitsNeutralWhenStale(t *testing.T) {
	submitter := &fakeSubmitter{
		quote:       app.FeeQuote{Score: 80, Stale: true},
		resultScore: 59,
	}
	runner := newRunner(submitter, []Source{&fakeSource{name: "a", weight: 1, err: errors.New("down")}}, 2)

	_, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{50}, submitter.submitted)
}

func TestRunOnce_SubmitFailurePropagates(t *testing.T) {
	submitter := &fakeSubmitter{
		quote:     app.FeeQuote{Score: 50, Stale: false},
		submitErr: errors.New("engine unreachable"),
	}
	runner := newRunner(submitter, []Source{&fakeSource{name: "a", weight: 1, score: 90}}, 2)

	_, err := runner.RunOnce(context.Background())
	assert.Error(t, err)
}
