package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Leihyn/sentifee/internal/adapter/eventpublisher"
	"github.com/Leihyn/sentifee/internal/adapter/httpserver"
	"github.com/Leihyn/sentifee/internal/adapter/postgres"
	redisadapter "github.com/Leihyn/sentifee/internal/adapter/redis"
	"github.com/Leihyn/sentifee/internal/adapter/websocket"
	"github.com/Leihyn/sentifee/internal/app"
	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/keeper"
	"github.com/Leihyn/sentifee/internal/platform/config"
	"github.com/Leihyn/sentifee/internal/platform/logging"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(cfg *config.Config) *goredis.Client {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupJournal(cfg *config.Config) *postgres.Journal {
	if cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set, event journal disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	journal, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := journal.RunMigrations(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	return journal
}

func setupKeeper(cfg *config.Config, appSvc *app.Service, clock clockwork.Clock) *keeper.Runner {
	specs, err := cfg.Sources()
	if err != nil {
		slog.Error("Invalid signal source configuration", "error", err)
		os.Exit(1)
	}
	if len(specs) == 0 || cfg.KeeperPrincipal == "" {
		slog.Info("No signal sources or keeper principal configured, built-in keeper disabled")
		return nil
	}

	sources := make([]keeper.Source, len(specs))
	for i, spec := range specs {
		sources[i] = keeper.NewHTTPSource(spec, nil)
	}

	return keeper.NewRunner(appSvc, keeper.NewAggregator(sources), keeper.Options{
		Principal: domain.Principal(cfg.KeeperPrincipal),
		Interval:  cfg.UpdateInterval,
		Jitter:    cfg.UpdateJitter,
		MinDelta:  cfg.MinScoreDelta,
		Limiter:   rate.NewLimiter(rate.Every(time.Minute), 2),
		Clock:     clock,
	})
}

func runGracefulShutdown(srv *httpserver.Server, stopKeeper context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		stopKeeper()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	journal := setupJournal(cfg)
	if journal != nil {
		defer journal.Close()
	}

	stateStore := redisadapter.NewStateStore(redisClient)
	hub := websocket.NewHub()
	publisher := eventpublisher.New(redisClient, hub, journal)

	restoreCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	engine, err := app.RestoreEngine(restoreCtx, stateStore, domain.Principal(cfg.Owner), domain.Params{
		InitialKeeper:      domain.Principal(cfg.InitialKeeper),
		Alpha:              cfg.Alpha,
		StalenessThreshold: cfg.StalenessThreshold,
	}, clock)
	cancel()
	if err != nil {
		slog.Error("Failed to restore engine state", "error", err)
		os.Exit(1)
	}

	appSvc := app.NewService(engine, stateStore, publisher, clock)

	healthChecks := []httpserver.HealthCheck{
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}
	if journal != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: journal.Ping})
	}

	srv, err := httpserver.NewServer(cfg, appSvc, http.HandlerFunc(hub.ServeWS), healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	keeperCtx, stopKeeper := context.WithCancel(context.Background())
	defer stopKeeper()
	if runner := setupKeeper(cfg, appSvc, clock); runner != nil {
		go func() {
			if err := runner.Run(keeperCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Keeper runner exited", "error", err)
			}
		}()
	}

	done := runGracefulShutdown(srv, stopKeeper)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
