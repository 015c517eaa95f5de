package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/culinary-connect/internal/logger"
)

// setUnlessRevoked caches KEYS[1] unless the revocation marker KEYS[2] exists.
var setUnlessRevoked = redis.NewScript(`
	if redis.call("exists", KEYS[2]) == 1 then
		return 0
	end
	redis.call("set", KEYS[1], ARGV[1], "px", ARGV[2])
	return 1
`)

// TokenCacheRepository caches token key -> user id lookups in Redis.
// A deleted key stays revoked for one TTL, so a lookup racing with the
// revoking transaction cannot put it back.
type TokenCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached tokens and revocation markers
}

// NewTokenCacheRepository creates a new cache repository with the given TTL
func NewTokenCacheRepository(client *redis.Client, expiration time.Duration) *TokenCacheRepository {
	if expiration < time.Millisecond {
		expiration = time.Minute
	}
	return &TokenCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func tokenCacheKey(key string) string {
	return fmt.Sprintf("auth_token:%s", key)
}

func revokedTokenKey(key string) string {
	return fmt.Sprintf("auth_token_revoked:%s", key)
}

// Get returns the cached user id for a token key. ok is false on a cache miss.
func (r *TokenCacheRepository) Get(ctx context.Context, key string) (userID int64, ok bool, err error) {
	val, err := r.client.Get(ctx, tokenCacheKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		logger.Log.Debugw("token cache miss")
		return 0, false, nil
	}
	if err != nil {
		logger.Log.Warnw("token cache get failed", "error", err)
		return 0, false, err
	}

	userID, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		logger.Log.Warnw("token cache holds invalid value", "value", val, "error", err)
		return 0, false, err
	}

	logger.Log.Debugw("token cache hit", "user_id", userID)

	return userID, true, nil
}

// Set caches the owner of a token key. Revoked keys are not cached.
func (r *TokenCacheRepository) Set(ctx context.Context, key string, userID int64) error {
	stored, err := setUnlessRevoked.Run(ctx, r.client,
		[]string{tokenCacheKey(key), revokedTokenKey(key)},
		strconv.FormatInt(userID, 10), r.exp.Milliseconds(),
	).Int()

	logger.Log.Debugw("token cache set",
		"user_id", userID,
		"ttl", r.exp,
		"stored", stored == 1,
		"error", err,
	)

	return err
}

// Delete evicts the given token keys and marks them revoked for one TTL.
func (r *TokenCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, k := range keys {
		pipe.Set(ctx, revokedTokenKey(k), "1", r.exp)
		pipe.Del(ctx, tokenCacheKey(k))
	}
	_, err := pipe.Exec(ctx)

	logger.Log.Debugw("token cache delete",
		"keys", len(keys),
		"error", err,
	)

	return err
}
