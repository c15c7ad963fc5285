package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_order/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "cart:v3:dine-in:device-1"

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 10*time.Minute), mr
}

func state() domain.CartState {
	return domain.CartState{
		SchemaVersion: domain.CartSchemaVersion,
		Context:       domain.CartContext{RestaurantID: "r1"},
		Lines: []domain.CartLine{
			{LineKey: "A||", ItemID: "A", Title: "Tea", Price: 2, Qty: 3, Seq: 1},
		},
		Seq:       1,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	payload, _ := json.Marshal(state())
	require.NoError(t, mr.Set(cacheKey(testKey), string(payload)))

	got, err := cache.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.Context.RestaurantID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Qty)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background(), "cart:v3:dine-in:nobody")

	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_OldSchemaIsMiss(t *testing.T) {
	cache, mr := setupTestRedis(t)

	old := state()
	old.SchemaVersion = 2
	payload, _ := json.Marshal(old)
	require.NoError(t, mr.Set(cacheKey(testKey), string(payload)))

	_, err := cache.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey(testKey), "{not json"))

	_, err := cache.Get(context.Background(), testKey)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_StoresWithJitteredTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), testKey, state()))

	assert.True(t, mr.Exists(cacheKey(testKey)))
	ttl := mr.TTL(cacheKey(testKey))
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 15*time.Minute)

	got, err := cache.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, state().Lines, got.Lines)
}

func TestSet_ExpiresAfterTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, cache.Set(context.Background(), testKey, state()))

	mr.FastForward(20 * time.Minute)

	_, err := cache.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, cache.Set(context.Background(), testKey, state()))

	require.NoError(t, cache.Delete(context.Background(), testKey))
	assert.False(t, mr.Exists(cacheKey(testKey)))

	// deleting a missing key is not an error
	assert.NoError(t, cache.Delete(context.Background(), testKey))
}

func TestRedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), testKey)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
