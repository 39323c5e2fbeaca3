package numbers

import (
	"context"
	"errors"
	"time"

	"voice-receptionist/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PurchaseLock serialises purchases of the same number across instances.
// release must be called once the purchase has finished either way.
type PurchaseLock interface {
	Acquire(ctx context.Context, number string) (release func(), err error)
}

const (
	purchaseLockPrefix = "numbers:purchase:"
	defaultLockTTL     = 30 * time.Second
)

// RedisLock implements PurchaseLock with a SETNX key per number.
type RedisLock struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

func NewRedisLock(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *RedisLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLock{rdb: rdb, ttl: ttl, log: log}
}

func (l *RedisLock) Acquire(ctx context.Context, number string) (func(), error) {
	lock, err := utils.AcquireLock(ctx, l.rdb, purchaseLockPrefix+number, l.ttl)
	if errors.Is(err, utils.ErrLockHeld) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// The purchase may have used up ctx's deadline.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := utils.ReleaseLock(ctx, l.rdb, lock); err != nil {
			l.log.Warn("purchase lock release failed", zap.String("key", lock.Key), zap.Error(err))
		}
	}, nil
}
