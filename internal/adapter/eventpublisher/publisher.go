// Package eventpublisher implements domain.EventPublisher by fanning events
// out to Redis pub/sub, the websocket hub, and the optional postgres journal.
package eventpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Leihyn/sentifee/internal/adapter/postgres"
	"github.com/Leihyn/sentifee/internal/adapter/websocket"
	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/metrics"
)

// Channel is the Redis pub/sub channel carrying every domain event.
const Channel = "sentifee:events"

// envelope is the wire form of a published event.
type envelope struct {
	Kind    string       `json:"kind"`
	Payload domain.Event `json:"payload"`
}

// EventPublisher delivers events best-effort: a failing sink is logged and
// counted, never propagated as a hard failure unless every sink fails.
type EventPublisher struct {
	redisClient *goredis.Client
	hub         *websocket.Hub    // optional
	journal     *postgres.Journal // optional
}

func New(redisClient *goredis.Client, hub *websocket.Hub, journal *postgres.Journal) *EventPublisher {
	return &EventPublisher{
		redisClient: redisClient,
		hub:         hub,
		journal:     journal,
	}
}

func (ep *EventPublisher) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(envelope{Kind: ev.Kind(), Payload: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	delivered := false

	if err := ep.redisClient.Publish(ctx, Channel, payload).Err(); err != nil {
		metrics.PublishFailures.WithLabelValues("redis").Inc()
		slog.WarnContext(ctx, "Failed to publish event to Redis", "kind", ev.Kind(), "error", err)
	} else {
		delivered = true
	}

	if ep.hub != nil {
		ep.hub.Broadcast(payload)
		delivered = true
	}

	if ep.journal != nil {
		if err := ep.journal.Append(ctx, ev); err != nil {
			metrics.PublishFailures.WithLabelValues("journal").Inc()
			slog.WarnContext(ctx, "Failed to journal event", "kind", ev.Kind(), "error", err)
		} else {
			delivered = true
		}
	}

	if !delivered {
		return fmt.Errorf("event %s reached no sink", ev.Kind())
	}

	metrics.EventsPublished.WithLabelValues(ev.Kind()).Inc()
	return nil
}
