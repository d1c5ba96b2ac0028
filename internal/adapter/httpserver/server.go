// Package httpserver exposes the fee engine over HTTP: public fee reads,
// keeper update submission, and owner-only admin operations.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leihyn/sentifee/internal/app"
	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/platform/config"
)

type appService interface {
	UpdateSentiment(ctx context.Context, caller domain.Principal, raw uint64) (app.UpdateResult, error)
	Fee(ctx context.Context) app.FeeQuote
	State(ctx context.Context) app.StateView
	SetKeeperAuthorization(ctx context.Context, caller, keeper domain.Principal, authorized bool) error
	SetPrimaryKeeper(ctx context.Context, caller, keeper domain.Principal) error
	SetAlpha(ctx context.Context, caller domain.Principal, alpha uint64) error
	SetStalenessThreshold(ctx context.Context, caller domain.Principal, threshold time.Duration) error
	TransferOwnership(ctx context.Context, caller, newOwner domain.Principal) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app              appService
	websocketHandler http.Handler

	// identity: bearer token to principal. The engine enforces authorization;
	// the transport only establishes who is calling.
	ownerPrincipal domain.Principal
	tokens         map[string]domain.Principal

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app appService, websocketHandler http.Handler, healthChecks []HealthCheck) (*Server, error) {
	tokens, err := cfg.KeeperPrincipals()
	if err != nil {
		return nil, err
	}
	if _, dup := tokens[cfg.OwnerToken]; dup {
		return nil, fmt.Errorf("OWNER_TOKEN collides with a keeper token")
	}
	tokens[cfg.OwnerToken] = domain.Principal(cfg.Owner)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              app,
		websocketHandler: websocketHandler,
		ownerPrincipal:   domain.Principal(cfg.Owner),
		tokens:           tokens,
		healthChecks:     healthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
