package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel shared by every instance.
const DefaultChannel = "takt:changes"

// RedisBroker relays change messages between instances through Redis pub/sub.
// Every instance, including the publisher, receives the message from Redis and
// delivers it to its local hub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
	origin  string
	logger  *slog.Logger
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisBroker wires a broker to hub. origin identifies this instance in
// relayed messages.
func NewRedisBroker(client *redis.Client, hub *Hub, origin string, logger *slog.Logger) *RedisBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroker{
		client:  client,
		channel: DefaultChannel,
		hub:     hub,
		origin:  origin,
		logger:  logger.With("component", "realtime.RedisBroker"),
	}
}

// Publish implements Relay.
func (b *RedisBroker) Publish(ctx context.Context, msg Message) error {
	if msg.Origin == "" {
		msg.Origin = b.origin
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

// Run subscribes to the channel and feeds received messages into the hub
// until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}
	b.logger.InfoContext(ctx, "subscribed", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeMessage(m.Payload)
			if err != nil {
				b.logger.WarnContext(ctx, "ignoring malformed message", "error", err)
				continue
			}
			b.hub.Deliver(msg)
		}
	}
}

// Ping checks connectivity.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func decodeMessage(payload string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, err
	}
	if msg.Slug == "" || msg.Type == "" {
		return Message{}, fmt.Errorf("message without slug or type")
	}
	return msg, nil
}
