package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestTokenCacheRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	// Start Redis container
	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	assert.NoError(t, err)
	defer redisC.Terminate(ctx)

	host, err := redisC.Host(ctx)
	assert.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	assert.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	defer rdb.Close()

	assert.NoError(t, rdb.Ping(ctx).Err())

	repo := NewTokenCacheRepository(rdb, 2*time.Second)

	t.Run("Set and Get", func(t *testing.T) {
		assert.NoError(t, repo.Set(ctx, "abc", 42))

		userID, ok, err := repo.Get(ctx, "abc")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(42), userID)
	})

	t.Run("Miss", func(t *testing.T) {
		_, ok, err := repo.Get(ctx, "unknown")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		assert.NoError(t, repo.Set(ctx, "k1", 1))
		assert.NoError(t, repo.Set(ctx, "k2", 1))
		assert.NoError(t, repo.Delete(ctx, "k1", "k2"))
		assert.NoError(t, repo.Delete(ctx))

		_, ok, err := repo.Get(ctx, "k1")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Revoked key is not cached again", func(t *testing.T) {
		// a lookup that started before logout committed re-caches the token
		assert.NoError(t, repo.Set(ctx, "logged-out", 7))
		assert.NoError(t, repo.Delete(ctx, "logged-out"))
		assert.NoError(t, repo.Set(ctx, "logged-out", 7))

		_, ok, err := repo.Get(ctx, "logged-out")
		assert.NoError(t, err)
		assert.False(t, ok)

		ttl, err := rdb.PTTL(ctx, "auth_token_revoked:logged-out").Result()
		assert.NoError(t, err)
		assert.True(t, ttl > 0 && ttl <= 2*time.Second)
	})

	t.Run("Revocation expires with the TTL", func(t *testing.T) {
		assert.NoError(t, repo.Delete(ctx, "short-lived"))
		time.Sleep(2100 * time.Millisecond)

		assert.NoError(t, repo.Set(ctx, "short-lived", 9))
		userID, ok, err := repo.Get(ctx, "short-lived")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(9), userID)
	})

	t.Run("Invalid value", func(t *testing.T) {
		assert.NoError(t, rdb.Set(ctx, "auth_token:bad", "not-a-number", time.Minute).Err())
		_, ok, err := repo.Get(ctx, "bad")
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("Cached value expires", func(t *testing.T) {
		assert.NoError(t, repo.Set(ctx, "short", 7))

		// Wait for expiration (2s)
		time.Sleep(3 * time.Second)

		_, ok, err := repo.Get(ctx, "short")
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}
