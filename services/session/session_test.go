package sessionsvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/qlearn/core"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), core.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client)

	require.NoError(t, store.Revoke(ctx, "abc", time.Now().Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "expired", time.Now().Add(-time.Minute)))

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists(keyPrefix+"abc"))
	assert.False(t, mr.Exists(keyPrefix+"expired"))

	revoked, err = store.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked, "revocations expire with the token")
}

func TestRedisStoreDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err := NewRedisStore(client).IsRevoked(context.Background(), "abc")
	assert.Error(t, err)

	_, err = NewRedisClient(context.Background(), core.RedisConfig{Addr: mr.Addr()})
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().(*memoryStore)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "abc", now.Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "old", now.Add(-time.Second)))

	revoked, _ := store.IsRevoked(ctx, "abc")
	assert.True(t, revoked)
	revoked, _ = store.IsRevoked(ctx, "old")
	assert.False(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, _ = store.IsRevoked(ctx, "abc")
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "new", now.Add(time.Hour)))
	assert.Len(t, store.revoked, 1, "expired ids are purged on revoke")
}
