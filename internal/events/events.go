// Package events carries slot change notifications over Redis pub/sub.
// The board UI and the bot consume the feed instead of polling the store;
// consumers fall back to their own periodic refresh when Redis is absent.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SlotsChannel is the pub/sub channel for the slots table.
const SlotsChannel = "slotboard:slots"

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
)

// Change is one slot change notification.
type Change struct {
	Table  string `json:"table"`
	Op     string `json:"op"`
	SlotID string `json:"slot_id"`
}

// Publisher emits slot changes. A nil Publisher drops everything silently,
// so callers need no feature flag when Redis is not configured.
type Publisher struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewPublisher creates a publisher over the given Redis client.
func NewPublisher(rdb *redis.Client, logger zerolog.Logger) *Publisher {
	return &Publisher{
		rdb:    rdb,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// SlotChanged publishes a change for the given slot. Best-effort: delivery is
// not required for correctness of the slot state itself.
func (p *Publisher) SlotChanged(ctx context.Context, op, slotID string) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Change{Table: "slots", Op: op, SlotID: slotID})
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := p.rdb.Publish(ctx, SlotsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscriber consumes slot changes.
type Subscriber struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewSubscriber creates a subscriber over the given Redis client.
func NewSubscriber(rdb *redis.Client, logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		rdb:    rdb,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Run delivers changes to handler until ctx is cancelled. Malformed messages
// are logged and skipped.
func (s *Subscriber) Run(ctx context.Context, handler func(Change)) error {
	pubsub := s.rdb.Subscribe(ctx, SlotsChannel)
	defer pubsub.Close()

	// Confirm the subscription before consuming.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", SlotsChannel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				s.logger.Error().Err(err).Str("payload", msg.Payload).Msg("bad change payload")
				continue
			}
			handler(change)
		}
	}
}
