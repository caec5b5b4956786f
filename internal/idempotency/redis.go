package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL    = 30 * time.Second
	lockRetry  = 50 * time.Millisecond
	keyPrefix  = "idem:fp:"
	lockPrefix = "idem:lock:"
)

// unlockScript deletes the lock only if it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisKeeper shares locks and fingerprints between server instances.
type RedisKeeper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisKeeper(rdb *redis.Client, ttl time.Duration) *RedisKeeper {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisKeeper{rdb: rdb, ttl: ttl}
}

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	slog.Info("Redis connected", "addr", addr)
	return rdb, nil
}

func (k *RedisKeeper) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := lockPrefix + key
	for {
		ok, err := k.rdb.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("idempotency lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
	return func() {
		if err := unlockScript.Run(context.Background(), k.rdb, []string{lockKey}, token).Err(); err != nil {
			slog.Warn("Failed to release idempotency lock", "key", key, "error", err)
		}
	}, nil
}

func (k *RedisKeeper) Remember(ctx context.Context, key, fingerprint string) error {
	ok, err := k.rdb.SetNX(ctx, keyPrefix+key, fingerprint, k.ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	if ok {
		return nil
	}
	stored, err := k.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return k.Remember(ctx, key, fingerprint)
	}
	if err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	if stored != fingerprint {
		return ErrKeyReused
	}
	return nil
}

var _ Keeper = (*RedisKeeper)(nil)
