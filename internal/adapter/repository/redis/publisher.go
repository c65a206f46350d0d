package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/orgledger/internal/domain"
)

// DefaultChannelPrefix prefixes the event type to form the channel name,
// e.g. "ledger.events.journal.posted".
const DefaultChannelPrefix = "ledger.events."

// Envelope is the message published for every outbox event.
type Envelope struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Payload       map[string]any `json:"payload"`
}

// Publisher publishes outbox events on Redis pub/sub.
type Publisher struct {
	client *redis.Client
	prefix string
}

// NewPublisher creates a new Publisher. An empty prefix uses
// DefaultChannelPrefix.
func NewPublisher(client *redis.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Publisher{client: client, prefix: prefix}
}

// Channel returns the channel an event type is published on.
func (p *Publisher) Channel(eventType string) string {
	return p.prefix + eventType
}

// Publish sends event to its channel.
func (p *Publisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg, err := json.Marshal(Envelope{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    event.CreatedAt,
		Payload:       event.Payload,
	})
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, p.Channel(event.EventType), msg).Err()
}
