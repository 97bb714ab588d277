package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"parcelbox/internal/models"
)

func TestChannelBusDeliversInOrder(t *testing.T) {
	bus := NewChannelBus(8, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 8)
	go func() {
		_ = bus.Run(ctx, func(_ context.Context, event Event) error {
			received <- event
			return nil
		})
	}()

	first := NewPackageReceived(models.Package{ID: 1, DeviceID: "box-01"})
	second := NewSecurityAlert("box-01", "tamper")
	require.NoError(t, bus.Publish(ctx, first))
	require.NoError(t, bus.Publish(ctx, second))

	select {
	case got := <-received:
		require.Equal(t, first.ID, got.ID)
		require.Equal(t, TypePackageReceived, got.Type)
		require.NotNil(t, got.Package)
	case <-time.After(time.Second):
		t.Fatal("first event not delivered")
	}

	select {
	case got := <-received:
		require.Equal(t, second.ID, got.ID)
		require.Equal(t, TypeSecurityAlert, got.Type)
		require.Equal(t, "tamper", got.Reason)
	case <-time.After(time.Second):
		t.Fatal("second event not delivered")
	}
}

func TestChannelBusPublishNeverBlocks(t *testing.T) {
	// No consumer running and a tiny buffer: publishes past the buffer are
	// dropped, not blocked on.
	bus := NewChannelBus(1, zerolog.Nop())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.Publish(ctx, NewSecurityAlert("box-01", "door_open"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		event := NewSecurityAlert("box-01", "tamper")
		_, dup := seen[event.ID]
		require.False(t, dup)
		seen[event.ID] = struct{}{}
	}
}
