package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"parcelbox/internal/store"
)

func testStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	return NewStore(store.NewMemoryStore(), ttl, zerolog.Nop())
}

func TestCreateAndFind(t *testing.T) {
	s := testStore(t, time.Hour)
	ctx := context.Background()

	created, err := s.Create(ctx, "alice", "token-1")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "alice", created.Username)
	require.WithinDuration(t, created.CreatedAt.Add(time.Hour), created.ExpiresAt, time.Second)

	found, err := s.FindByToken(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = s.FindByToken(ctx, "unknown")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindOnEmptyStore(t *testing.T) {
	s := testStore(t, time.Hour)
	_, err := s.FindByToken(context.Background(), "token")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTouchUpdatesActivity(t *testing.T) {
	s := testStore(t, time.Hour)
	ctx := context.Background()

	created, err := s.Create(ctx, "alice", "token-1")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	ok, err := s.Touch(ctx, "token-1")
	require.NoError(t, err)
	require.True(t, ok)

	found, err := s.FindByToken(ctx, "token-1")
	require.NoError(t, err)
	require.True(t, found.LastActivity.After(created.LastActivity))

	ok, err = s.Touch(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDelete(t *testing.T) {
	s := testStore(t, time.Hour)
	ctx := context.Background()

	_, err := s.Create(ctx, "alice", "token-1")
	require.NoError(t, err)

	ok, err := s.Delete(ctx, "token-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.FindByToken(ctx, "token-1")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err = s.Delete(ctx, "token-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	db := store.NewMemoryStore()
	live := NewStore(db, time.Hour, zerolog.Nop())
	dead := NewStore(db, -time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, err := live.Create(ctx, "alice", "live-token")
	require.NoError(t, err)
	_, err = dead.Create(ctx, "bob", "dead-token-1")
	require.NoError(t, err)
	_, err = dead.Create(ctx, "bob", "dead-token-2")
	require.NoError(t, err)

	removed, err := live.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, err = live.FindByToken(ctx, "live-token")
	require.NoError(t, err)
	_, err = live.FindByToken(ctx, "dead-token-1")
	require.ErrorIs(t, err, ErrNotFound)

	// Second sweep finds nothing left to remove.
	removed, err = live.SweepExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)
}
