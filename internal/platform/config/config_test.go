package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leihyn/sentifee/internal/domain"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("OWNER", "owner-principal")
	t.Setenv("OWNER_TOKEN", "owner-secret")
	t.Setenv("INITIAL_KEEPER", "keeper-1")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, uint64(30), cfg.Alpha)
	assert.Equal(t, 6*time.Hour, cfg.StalenessThreshold)
	assert.Equal(t, 15*time.Minute, cfg.UpdateInterval)
	assert.Equal(t, uint64(2), cfg.MinScoreDelta)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OWNER", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OWNER is required")
}

func TestLoad_RejectsAlphaAbove100(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMA_ALPHA", "150")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMA_ALPHA")
}

func TestLoad_RejectsShortStalenessThreshold(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STALENESS_THRESHOLD", "30m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STALENESS_THRESHOLD")
}

func TestKeeperPrincipals_ParsesPairs(t *testing.T) {
	cfg := &Config{KeeperTokens: "tok1=keeper-1, tok2=keeper-2"}

	table, err := cfg.KeeperPrincipals()
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Principal{
		"tok1": "keeper-1",
		"tok2": "keeper-2",
	}, table)
}

func TestKeeperPrincipals_RejectsMalformedPair(t *testing.T) {
	cfg := &Config{KeeperTokens: "just-a-token"}
	_, err := cfg.KeeperPrincipals()
	assert.Error(t, err)
}

func TestKeeperPrincipals_RejectsDuplicateToken(t *testing.T) {
	cfg := &Config{KeeperTokens: "tok=keeper-1,tok=keeper-2"}
	_, err := cfg.KeeperPrincipals()
	assert.Error(t, err)
}

func TestSources_ParsesTriples(t *testing.T) {
	cfg := &Config{SignalSources: "fear-greed=https://example.com/fng?format=json=3,funding=https://example.com/funding=1"}

	specs, err := cfg.Sources()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, SourceSpec{Name: "fear-greed", URL: "https://example.com/fng?format=json", Weight: 3}, specs[0])
	assert.Equal(t, SourceSpec{Name: "funding", URL: "https://example.com/funding", Weight: 1}, specs[1])
}

func TestSources_RejectsZeroWeight(t *testing.T) {
	cfg := &Config{SignalSources: "bad=https://example.com=0"}
	_, err := cfg.Sources()
	assert.Error(t, err)
}

func TestSources_EmptyDisablesKeeper(t *testing.T) {
	cfg := &Config{}
	specs, err := cfg.Sources()
	require.NoError(t, err)
	assert.Nil(t, specs)
}
