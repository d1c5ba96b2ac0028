// Package keeper implements the reference keeper: it aggregates external
// sentiment signals and submits the result to the engine on a schedule.
package keeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/platform/config"
	"github.com/Leihyn/sentifee/internal/platform/retry"
)

// Source produces one raw sentiment reading in [0, 100].
type Source interface {
	Name() string
	Weight() uint64
	Fetch(ctx context.Context) (uint64, error)
}

const fetchTimeout = 10 * time.Second

// HTTPSource reads a score from a JSON endpoint responding with {"score": n}.
// Each source carries its own circuit breaker so one flapping endpoint cannot
// burn the whole run's time budget.
type HTTPSource struct {
	name   string
	url    string
	weight uint64

	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	policy  retry.Policy
}

func NewHTTPSource(spec config.SourceSpec, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        spec.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Signal source circuit breaker state changed",
				"source", name, "from", from.String(), "to", to.String())
		},
	})

	return &HTTPSource{
		name:    spec.Name,
		url:     spec.URL,
		weight:  spec.Weight,
		client:  client,
		breaker: breaker,
		policy: retry.Policy{
			MaxAttempts:     3,
			InitialBackoff:  500 * time.Millisecond,
			MaxBackoff:      5 * time.Second,
			ThrottleBackoff: 2 * time.Second,
		},
	}
}

func (s *HTTPSource) Name() string   { return s.name }
func (s *HTTPSource) Weight() uint64 { return s.weight }

func (s *HTTPSource) Fetch(ctx context.Context) (uint64, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return retry.Do(ctx, s.policy, classifyFetchError, func() (uint64, error) {
			return s.fetchOnce(ctx)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("source %s: %w", s.name, err)
	}
	return result.(uint64), nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, &retry.PermanentError{Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", s.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, &statusError{code: resp.StatusCode}
	}

	var body struct {
		Score *uint64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, &retry.PermanentError{Err: fmt.Errorf("decode %s response: %w", s.name, err)}
	}
	if body.Score == nil {
		return 0, &retry.PermanentError{Err: fmt.Errorf("%s response has no score field", s.name)}
	}
	if *body.Score > domain.MaxScore {
		return 0, &retry.PermanentError{Err: fmt.Errorf("%s reported score %d above %d", s.name, *body.Score, domain.MaxScore)}
	}
	return *body.Score, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func classifyFetchError(err error) retry.Action {
	var permanent *retry.PermanentError
	if errors.As(err, &permanent) {
		return retry.Stop
	}

	var status *statusError
	if errors.As(err, &status) {
		switch {
		case status.code == http.StatusTooManyRequests:
			return retry.Throttled
		case status.code >= 500:
			return retry.Transient
		default:
			return retry.Stop
		}
	}

	// Network-level failures are worth retrying.
	return retry.Transient
}
