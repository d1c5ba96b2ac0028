// Package postgres appends domain events to a durable journal table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Leihyn/sentifee/internal/domain"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS sentiment_events (
    id          UUID PRIMARY KEY,
    kind        TEXT NOT NULL,
    payload     JSONB NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sentiment_events_occurred_at_idx
    ON sentiment_events (occurred_at);
`

// Journal is an append-only record of every domain event, used for audits and
// offline analysis. It is optional: the engine works without it.
type Journal struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, databaseURL string) (*Journal, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Journal{pool: pool}, nil
}

// RunMigrations creates the journal table if it does not exist.
func (j *Journal) RunMigrations(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, journalSchema); err != nil {
		return fmt.Errorf("migrate journal schema: %w", err)
	}
	return nil
}

// Append writes one event. The event ID is the primary key, so redelivery of
// the same event is a no-op.
func (j *Journal) Append(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = j.pool.Exec(ctx,
		`INSERT INTO sentiment_events (id, kind, payload, occurred_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		ev.EventID(), ev.Kind(), payload, ev.OccurredAt())
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (j *Journal) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}

func (j *Journal) Close() {
	j.pool.Close()
}
