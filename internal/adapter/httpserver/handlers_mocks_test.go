package httpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leihyn/sentifee/internal/app"
	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	updateSentimentFn       func(ctx context.Context, caller domain.Principal, raw uint64) (app.UpdateResult, error)
	feeFn                   func(ctx context.Context) app.FeeQuote
	stateFn                 func(ctx context.Context) app.StateView
	setKeeperFn             func(ctx context.Context, caller, keeper domain.Principal, authorized bool) error
	setPrimaryKeeperFn      func(ctx context.Context, caller, keeper domain.Principal) error
	setAlphaFn              func(ctx context.Context, caller domain.Principal, alpha uint64) error
	setStalenessThresholdFn func(ctx context.Context, caller domain.Principal, threshold time.Duration) error
	transferOwnershipFn     func(ctx context.Context, caller, newOwner domain.Principal) error
}

func (m *mockAppService) UpdateSentiment(ctx context.Context, caller domain.Principal, raw uint64) (app.UpdateResult, error) {
	if m.updateSentimentFn != nil {
		return m.updateSentimentFn(ctx, caller, raw)
	}
	return app.UpdateResult{}, errors.New("not implemented")
}

func (m *mockAppService) Fee(ctx context.Context) app.FeeQuote {
	if m.feeFn != nil {
		return m.feeFn(ctx)
	}
	return app.FeeQuote{Fee: domain.DefaultFee, Score: domain.NeutralScore}
}

func (m *mockAppService) State(ctx context.Context) app.StateView {
	if m.stateFn != nil {
		return m.stateFn(ctx)
	}
	return app.StateView{}
}

func (m *mockAppService) SetKeeperAuthorization(ctx context.Context, caller, keeper domain.Principal, authorized bool) error {
	if m.setKeeperFn != nil {
		return m.setKeeperFn(ctx, caller, keeper, authorized)
	}
	return nil
}

func (m *mockAppService) SetPrimaryKeeper(ctx context.Context, caller, keeper domain.Principal) error {
	if m.setPrimaryKeeperFn != nil {
		return m.setPrimaryKeeperFn(ctx, caller, keeper)
	}
	return nil
}

func (m *mockAppService) SetAlpha(ctx context.Context, caller domain.Principal, alpha uint64) error {
	if m.setAlphaFn != nil {
		return m.setAlphaFn(ctx, caller, alpha)
	}
	return nil
}

func (m *mockAppService) SetStalenessThreshold(ctx context.Context, caller domain.Principal, threshold time.Duration) error {
	if m.setStalenessThresholdFn != nil {
		return m.setStalenessThresholdFn(ctx, caller, threshold)
	}
	return nil
}

func (m *mockAppService) TransferOwnership(ctx context.Context, caller, newOwner domain.Principal) error {
	if m.transferOwnershipFn != nil {
		return m.transferOwnershipFn(ctx, caller, newOwner)
	}
	return nil
}

// --- Test helpers ---

const (
	testOwnerToken  = "owner-secret"
	testKeeperToken = "keeper-secret"
)

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	e := echo.New()

	srv := &Server{
		echo: e,
		config: &config.Config{
			Port:                "8080",
			UpdateRatePerSecond: 1000,
			UpdateBurst:         1000,
		},
		app:            app,
		ownerPrincipal: "owner-principal",
		tokens: map[string]domain.Principal{
			testOwnerToken:  "owner-principal",
			testKeeperToken: "keeper-1",
		},
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}
