package lock

import (
	"context"
	"errors"
	"fmt"
	"kaizencoach/plan-service/internal/config"
	"kaizencoach/plan-service/internal/logger"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "plan-lock:"
	pollInterval   = 50 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process that talks to the same Redis.
// A holder that dies keeps the key until TTL expires.
type RedisLocker struct {
	rdb  goredis.UniversalClient
	ttl  time.Duration
	wait time.Duration
	log  *logger.Logger
}

// NewRedisLocker connects to Redis and pings it before returning.
func NewRedisLocker(ctx context.Context, rcfg config.RedisConfig, lcfg config.LockConfig, log *logger.Logger) (*RedisLocker, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        rcfg.Addr,
		Password:    rcfg.Password,
		DB:          rcfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisLockerFromClient(rdb, lcfg.TTL, lcfg.Wait, log), nil
}

func NewRedisLockerFromClient(rdb goredis.UniversalClient, ttl, wait time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, wait: wait, log: log.With("component", "RedisLocker")}
}

// Acquire polls SET NX PX until it wins, the wait budget is spent or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}
		select {
		case <-waitCtx.Done():
			return nil, errors.Join(ErrNotAcquired, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("failed to release lock", "key", redisKey, "error", err)
		}
	}
}

func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}
