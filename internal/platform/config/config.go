// Package config loads and validates the process configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/Leihyn/sentifee/internal/domain"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"` // optional: enables the event journal

	// Engine configuration, applied only when no snapshot exists yet.
	Owner              string        `env:"OWNER"`
	InitialKeeper      string        `env:"INITIAL_KEEPER"`
	Alpha              uint64        `env:"EMA_ALPHA" default:"30"`
	StalenessThreshold time.Duration `env:"STALENESS_THRESHOLD" default:"6h"`

	// Transport identity: bearer tokens resolved to principals. Authorization
	// itself happens in the engine's access control lists.
	OwnerToken   string `env:"OWNER_TOKEN"`
	KeeperTokens string `env:"KEEPER_TOKENS"` // comma-separated token=principal pairs

	// Built-in keeper (signal aggregator) configuration.
	KeeperPrincipal string        `env:"KEEPER_PRINCIPAL"`
	SignalSources   string        `env:"SIGNAL_SOURCES"` // comma-separated name=url=weight triples
	UpdateInterval  time.Duration `env:"UPDATE_INTERVAL" default:"15m"`
	UpdateJitter    time.Duration `env:"UPDATE_JITTER" default:"2m"`
	MinScoreDelta   uint64        `env:"MIN_SCORE_DELTA" default:"2"`

	UpdateRatePerSecond float64 `env:"UPDATE_RATE_PER_SECOND" default:"5"`
	UpdateBurst         int     `env:"UPDATE_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"REDIS_URL":      cfg.RedisURL,
		"OWNER":          cfg.Owner,
		"OWNER_TOKEN":    cfg.OwnerToken,
		"INITIAL_KEEPER": cfg.InitialKeeper,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.Alpha > domain.MaxAlpha {
		return fmt.Errorf("EMA_ALPHA must be at most %d, got %d", domain.MaxAlpha, cfg.Alpha)
	}
	if cfg.StalenessThreshold < domain.MinStalenessThreshold {
		return fmt.Errorf("STALENESS_THRESHOLD must be at least %s, got %s",
			domain.MinStalenessThreshold, cfg.StalenessThreshold)
	}

	if _, err := cfg.KeeperPrincipals(); err != nil {
		return err
	}
	if _, err := cfg.Sources(); err != nil {
		return err
	}

	return nil
}

// KeeperPrincipals parses KEEPER_TOKENS into a token-to-principal table.
func (c *Config) KeeperPrincipals() (map[string]domain.Principal, error) {
	table := make(map[string]domain.Principal)
	if c.KeeperTokens == "" {
		return table, nil
	}

	for _, pair := range strings.Split(c.KeeperTokens, ",") {
		token, principal, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" || principal == "" {
			return nil, fmt.Errorf("KEEPER_TOKENS entry %q is not a token=principal pair", pair)
		}
		if _, dup := table[token]; dup {
			return nil, errors.New("KEEPER_TOKENS contains a duplicate token")
		}
		table[token] = domain.Principal(principal)
	}
	return table, nil
}

// SourceSpec describes one configured signal source.
type SourceSpec struct {
	Name   string
	URL    string
	Weight uint64
}

// Sources parses SIGNAL_SOURCES into source specs. An empty value disables
// the built-in keeper.
func (c *Config) Sources() ([]SourceSpec, error) {
	if c.SignalSources == "" {
		return nil, nil
	}

	var specs []SourceSpec
	for _, entry := range strings.Split(c.SignalSources, ",") {
		// name=url=weight; the URL may itself contain '=', so cut the name at
		// the first separator and the weight at the last.
		name, rest, ok := strings.Cut(strings.TrimSpace(entry), "=")
		sep := strings.LastIndex(rest, "=")
		if !ok || name == "" || sep <= 0 {
			return nil, fmt.Errorf("SIGNAL_SOURCES entry %q is not a name=url=weight triple", entry)
		}
		url, rawWeight := rest[:sep], rest[sep+1:]
		weight, err := strconv.ParseUint(rawWeight, 10, 64)
		if err != nil || weight == 0 {
			return nil, fmt.Errorf("SIGNAL_SOURCES entry %q has an invalid weight", entry)
		}
		specs = append(specs, SourceSpec{Name: name, URL: url, Weight: weight})
	}
	return specs, nil
}
