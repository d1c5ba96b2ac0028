package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leihyn/sentifee/internal/domain"
)

// Integration test, requires a running Redis. Skipped with -short.
func newIntegrationClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	rdb := goredis.NewClient(opts)
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() {
		rdb.Del(context.Background(), snapshotKey)
		_ = rdb.Close()
	})
	return rdb
}

func TestStateStore_LoadReturnsNilWhenAbsent(t *testing.T) {
	rdb := newIntegrationClient(t)
	store := NewStateStore(rdb)

	rdb.Del(context.Background(), snapshotKey)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestStateStore_SaveLoadRoundTrip(t *testing.T) {
	rdb := newIntegrationClient(t)
	store := NewStateStore(rdb)

	want := domain.Snapshot{
		Score:              72,
		LastUpdate:         time.Now().UTC().Truncate(time.Second),
		Alpha:              30,
		StalenessThreshold: 6 * time.Hour,
		Owner:              "owner-principal",
		PrimaryKeeper:      "keeper-1",
		Keepers:            []domain.Principal{"keeper-1", "keeper-2"},
	}

	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestStateStore_SaveOverwrites(t *testing.T) {
	rdb := newIntegrationClient(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	first := domain.Snapshot{Score: 10, Owner: "a", PrimaryKeeper: "k", Alpha: 30, StalenessThreshold: time.Hour}
	second := first
	second.Score = 90

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(90), got.Score)
}
