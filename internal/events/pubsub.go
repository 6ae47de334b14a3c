package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/thepaypay420/racepump/internal/constants"
)

// RedisSink publishes events to Redis Pub/Sub for live subscribers.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(ctx context.Context, addr string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisSink{client: client}, nil
}

func (s *RedisSink) PublishSwap(ctx context.Context, ev *SwapExecuted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// One firehose channel plus a per-pair channel for targeted consumers.
	channels := []string{
		constants.PubSubChannelSwaps,
		fmt.Sprintf("%s:%s:%s", constants.PubSubChannelSwaps, ev.InputMint, ev.MainOutputMint),
	}

	pipe := s.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSink) PublishConfig(ctx context.Context, ev *ConfigUpdated) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, constants.PubSubChannelConfig, data).Err()
}

// Subscribe delivers swap events from the firehose channel to handler until
// ctx is cancelled or the connection drops.
func (s *RedisSink) Subscribe(ctx context.Context, handler func(*SwapExecuted)) error {
	pubsub := s.client.Subscribe(ctx, constants.PubSubChannelSwaps)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev SwapExecuted
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			handler(&ev)
		}
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
