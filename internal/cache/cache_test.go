package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(DefaultConfig(), client, nil), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "sprint:1:issues", []byte("payload"), time.Minute))
	v, ok := e.Get(ctx, "sprint:1:issues")
	require.True(t, ok)
	require.Equal(t, "payload", string(v))
}

func TestSetZeroTTLDoesNotCache(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "k", []byte("v"), 0))
	_, ok := e.Get(ctx, "k")
	require.False(t, ok)
}

func TestSetNegativeTTLRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Set(context.Background(), "k", []byte("v"), -1*time.Second)
	require.ErrorIs(t, err, ErrNegativeTTL)
}

func TestGetExpiredIsMiss(t *testing.T) {
	e, mr := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
	mr.FastForward(200 * time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	_, ok := e.Get(ctx, "k")
	require.False(t, ok)
}

func TestSetManyGetManyRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	entries := make([]SetInput, 0, 100)
	keys := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		k := fmt.Sprintf("issue:PROJ-%d", i)
		keys = append(keys, k)
		entries = append(entries, SetInput{Key: k, Value: []byte(fmt.Sprintf("v%d", i)), TTL: time.Minute})
	}
	require.NoError(t, e.SetMany(ctx, entries))

	got := e.GetMany(ctx, keys)
	require.Len(t, got, 100)
	for i, k := range keys {
		require.Equal(t, fmt.Sprintf("v%d", i), string(got[k]))
	}

	stats := e.Stats()
	require.GreaterOrEqual(t, stats.Sets, int64(100))
	require.GreaterOrEqual(t, stats.Hits, int64(100))
}

func TestDeletePattern(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "sprint:1:issues", []byte("a"), time.Minute))
	require.NoError(t, e.Set(ctx, "sprint:1:metrics", []byte("b"), time.Minute))
	require.NoError(t, e.Set(ctx, "sprint:2:issues", []byte("c"), time.Minute))

	n := e.DeletePattern(ctx, "sprint:1:*")
	require.Equal(t, 2, n)

	_, ok := e.Get(ctx, "sprint:2:issues")
	require.True(t, ok)
}

func TestL2OutageDegradesToL1Only(t *testing.T) {
	e, mr := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "k", []byte("v"), time.Minute))
	mr.Close()

	v, ok := e.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "v", string(v))

	require.NoError(t, e.Set(ctx, "k2", []byte("v2"), time.Minute))
	v2, ok := e.Get(ctx, "k2")
	require.True(t, ok)
	require.Equal(t, "v2", string(v2))
}

func TestStatsHitRate(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "k", []byte("v"), time.Minute))
	_, _ = e.Get(ctx, "k")
	_, _ = e.Get(ctx, "missing")

	stats := e.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.InDelta(t, 0.5, stats.HitRate(), 0.0001)
}
