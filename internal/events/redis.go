package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher forwards envelopes to a Redis pub/sub channel so every API
// instance can deliver them to its own websocket clients.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// RedisRelay subscribes to the shared Redis channel and hands each envelope
// to a local publisher, normally the websocket hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   Publisher
}

func NewRedisRelay(client *redis.Client, channel string, local Publisher) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, local: local}
}

// Run blocks until ctx is cancelled or the subscription closes.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	log.Printf("relaying events from redis channel %s", r.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(ctx context.Context, payload string) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.Printf("WARN: relay: bad envelope: %v", err)
		return
	}
	if err := r.local.Publish(ctx, env); err != nil {
		log.Printf("WARN: relay %s to %s: %v", env.Type, env.Channel, err)
	}
}
