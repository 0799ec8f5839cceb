package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterInvalidatesPeers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo(Rule{Role: "member", Verb: VerbGet, Path: "/", Action: ActionAccept})

	local := NewBroadcaster(client, "permissions", nil)
	peer := NewBroadcaster(client, "permissions", nil)
	peerCache := NewCache(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- peer.Listen(ctx, peerCache) }()

	require.Eventually(t, func() bool { return mr.PubSubNumSub("permissions")["permissions"] == 1 }, time.Second, 5*time.Millisecond)

	_, err := peerCache.GetOrLoad(ctx)
	require.NoError(t, err)
	before := peerCache.Loads()

	local.Publish()
	require.Eventually(t, func() bool {
		_, err := peerCache.GetOrLoad(ctx)
		return err == nil && peerCache.Loads() > before
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.True(t, errors.Is(<-errc, context.Canceled))
}

func TestBroadcasterIgnoresOwnMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(newMemRepo())
	b := NewBroadcaster(client, "permissions", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Listen(ctx, cache) }()
	require.Eventually(t, func() bool { return mr.PubSubNumSub("permissions")["permissions"] == 1 }, time.Second, 5*time.Millisecond)

	// Subscribing invalidates once; let that settle before loading.
	time.Sleep(20 * time.Millisecond)
	_, err := cache.GetOrLoad(ctx)
	require.NoError(t, err)
	gen := cache.generation.Load()

	b.Publish()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, gen, cache.generation.Load())
}
