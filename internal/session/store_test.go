package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(id string) Session {
	return Session{
		ID:        id,
		UserUID:   "U1",
		Email:     "active@example.com",
		Role:      "member",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		TTL:       time.Minute,
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleSession("abc"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("session:abc"))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "U1", got.UserUID)
	assert.True(t, got.CreatedAt.Equal(sampleSession("abc").CreatedAt))

	taken, err := store.Take(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", taken.ID)

	_, err = store.Take(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleSession("abc"), time.Minute))
	mr.FastForward(time.Minute + time.Second)

	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)
	mr.Close()

	_, err := store.Get(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestMemoryStoreExpiryAndSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock.Now)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, store.Put(ctx, sampleSession(fmt.Sprintf("s-%d", i)), time.Minute))
	}
	require.NoError(t, store.Put(ctx, sampleSession("long"), time.Hour))
	assert.Equal(t, 101, store.Len())

	_, err := store.Get(ctx, "s-1")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Equal(t, 99, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreTake(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sampleSession("abc"), time.Minute))

	_, err := store.Take(ctx, "abc")
	require.NoError(t, err)
	_, err = store.Take(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Delete(ctx, "missing"))
}
