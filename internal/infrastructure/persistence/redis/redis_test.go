package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientWithRedis(rdb), mr
}

func TestCacheGetOrLoad(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return map[string]int{"asset_count": 3}, nil
	}

	key := ProjectStatsKey("PRJ_1")
	got, err := cache.GetOrLoad(ctx, key, time.Minute, loader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"asset_count":3}`, string(got))

	got, err = cache.GetOrLoad(ctx, key, time.Minute, loader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"asset_count":3}`, string(got))
	assert.Equal(t, int32(1), calls.Load())

	mr.FastForward(2 * time.Minute)
	_, err = cache.GetOrLoad(ctx, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheGetOrLoadConcurrentMisses(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client)

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrLoad(context.Background(), "project:P:stats", time.Minute, loader)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheLoaderError(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client)

	_, err := cache.GetOrLoad(context.Background(), "project:P:stats", time.Minute, func(context.Context) (any, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("project:P:stats"))
}

func TestCacheInvalidateProject(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client)

	require.NoError(t, mr.Set(ProjectStatsKey("PRJ_A"), "1"))
	require.NoError(t, mr.Set(ProjectStatsKey("PRJ_B"), "1"))

	require.NoError(t, cache.InvalidateProject(context.Background(), "PRJ_A"))
	assert.False(t, mr.Exists(ProjectStatsKey("PRJ_A")))
	assert.True(t, mr.Exists(ProjectStatsKey("PRJ_B")))
}

func TestRateLimiter(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	ctx := context.Background()
	key := BuildRateLimitKey("generate", "PRJ_1")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	require.NoError(t, limiter.Reset(ctx, key))
	ok, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHealthCheck(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
