// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"social-video-orchestrator/internal/domain"

	"github.com/google/uuid"
)

// Locker is a best-effort single-flight guard. It keeps overlapping recovery
// sweeps from scanning the same bucket twice; correctness of terminal
// transitions does not depend on it (those are conditional updates).
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type RedisLocker struct {
	cli RedisClient
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, key, token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrSweepInProgress
	}
	return token, nil
}

const luaUnlock = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return l.cli.Eval(ctx, luaUnlock, []string{key}, token)
}
