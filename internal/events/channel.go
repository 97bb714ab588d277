package events

import (
	"context"

	"github.com/rs/zerolog"
)

// ChannelBus is the in-process outbox: a buffered channel drained by a
// single consumer goroutine. When the buffer is full the event is dropped
// and logged rather than blocking the publisher.
type ChannelBus struct {
	ch  chan Event
	log zerolog.Logger
}

func NewChannelBus(bufferSize int, log zerolog.Logger) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &ChannelBus{
		ch:  make(chan Event, bufferSize),
		log: log,
	}
}

func (b *ChannelBus) Publish(_ context.Context, event Event) error {
	select {
	case b.ch <- event:
	default:
		b.log.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("event buffer full, dropped")
	}
	return nil
}

func (b *ChannelBus) Run(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-b.ch:
			if err := handler(ctx, event); err != nil {
				b.log.Error().Err(err).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("event handler failed")
			}
		}
	}
}

func (b *ChannelBus) Close() error { return nil }
