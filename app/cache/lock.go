package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockHeld = errors.New("lock is held by another owner")

const keyPrefix = "course-payments:poll:"

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RedisLocker is a single-attempt SET NX lock. Callers that lose the race
// get ErrLockHeld immediately instead of waiting.
type RedisLocker struct {
	cli *redis.Client
}

func NewRedisLocker(cli *redis.Client) *RedisLocker {
	return &RedisLocker{cli: cli}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{keyPrefix + key}, token).Result()
	return err
}

// NoopLocker always grants the lock. Used when REDIS_ADDR is empty; the
// database row lock still serializes the state transition.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	return uuid.NewString(), nil
}

func (NoopLocker) Unlock(context.Context, string, string) error {
	return nil
}
