package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig controls redis client behavior.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	PingTimeout  time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	out := c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	if out.PoolSize <= 0 {
		out.PoolSize = 10
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// OpenRedis initializes a Redis client and validates connectivity via PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// lockReleaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var lockReleaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Lock is a held redis lock. Release it with ReleaseLock.
type Lock struct {
	Key   string
	Token string
}

// ErrLockHeld is returned when another holder owns the key.
var ErrLockHeld = errors.New("lock held")

// AcquireLock takes an exclusive, expiring lock on key. The TTL bounds how long
// a crashed holder can block others.
func AcquireLock(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (Lock, error) {
	if rdb == nil {
		return Lock{}, errors.New("redis client is nil")
	}
	if key == "" {
		return Lock{}, errors.New("key is required")
	}
	if ttl <= 0 {
		return Lock{}, errors.New("ttl must be > 0")
	}

	token := uuid.NewString()
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return Lock{}, err
	}
	if !ok {
		return Lock{}, ErrLockHeld
	}
	return Lock{Key: key, Token: token}, nil
}

// ReleaseLock releases a lock previously returned by AcquireLock.
func ReleaseLock(ctx context.Context, rdb redis.Scripter, l Lock) error {
	if rdb == nil {
		return errors.New("redis client is nil")
	}
	if l.Key == "" {
		return errors.New("key is required")
	}
	return lockReleaseScript.Run(ctx, rdb, []string{l.Key}, l.Token).Err()
}
