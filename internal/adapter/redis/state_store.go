// Package redis persists the engine snapshot in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Leihyn/sentifee/internal/domain"
)

const snapshotKey = "sentifee:engine:snapshot"

// StateStore implements domain.StateStore on a single Redis key holding the
// JSON-encoded snapshot. The snapshot has no TTL: it must survive restarts.
type StateStore struct {
	rdb *goredis.Client
}

func NewStateStore(rdb *goredis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

func (s *StateStore) Save(ctx context.Context, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot, or (nil, nil) when none exists yet.
func (s *StateStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	payload, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
