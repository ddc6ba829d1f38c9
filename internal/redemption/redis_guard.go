package redemption

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	guardPrefix     = "meal-inflight:"
	defaultGuardTTL = 10 * time.Second
	releaseTimeout  = 2 * time.Second
)

// releaseScript deletes the key only if it still holds our token, so an expired-and-retaken
// key is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared by every instance that talks to the same Redis.
// Keys expire after ttl so a crashed holder cannot wedge a pair forever.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisGuard creates a Redis-backed guard. ttl <= 0 uses 10s.
func NewRedisGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGuard{client: client, ttl: ttl, logger: logger}
}

var _ Guard = (*RedisGuard)(nil)

// TryAcquire sets the key with NX and a random token.
func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	redisKey := guardPrefix + key
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", redisKey, err)
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			// The request context may already be cancelled; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(rctx, g.client, []string{redisKey}, token).Err(); err != nil {
				g.logger.Error("release in-flight key", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}
	return release, true, nil
}
