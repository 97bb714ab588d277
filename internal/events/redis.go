package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"parcelbox/internal/config"
)

const consumerGroup = "dispatchers"

// RedisBus publishes events to a redis stream and consumes them through a
// consumer group, so dispatch survives restarts and can move to a separate
// process without touching the publishers.
type RedisBus struct {
	client   *redis.Client
	stream   string
	consumer string
	log      zerolog.Logger
}

func NewRedisBus(ctx context.Context, cfg config.EventsConfig, consumer string, log zerolog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{
		client:   client,
		stream:   cfg.Stream,
		consumer: consumer,
		log:      log,
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": payload},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (b *RedisBus) Run(ctx context.Context, handler Handler) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, consumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Error().Err(err).Msg("stream read error")
			time.Sleep(2 * time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				b.handleMessage(ctx, handler, msg)
			}
		}
	}
}

func (b *RedisBus) handleMessage(ctx context.Context, handler Handler, msg redis.XMessage) {
	raw, _ := msg.Values["event"].(string)

	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		b.log.Error().Err(err).Str("message_id", msg.ID).Msg("decode event failed")
	} else if err := handler(ctx, event); err != nil {
		b.log.Error().Err(err).Str("event_id", event.ID).Msg("event handler failed")
	}

	if err := b.client.XAck(ctx, b.stream, consumerGroup, msg.ID).Err(); err != nil {
		b.log.Error().Err(err).Str("message_id", msg.ID).Msg("ack failed")
	}
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
