// Package runlock prevents two instances from running the same pipeline at
// once.
package runlock

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix  = "jobhunter:lock:"
	DefaultTTL = 2 * time.Hour
)

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("run lock is held by another instance")

// Deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Release gives the lock back.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, name string) (Release, error)
}

type commander interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis is a Locker backed by a single redis key per lock name. The key
// expires after the TTL so a crashed holder cannot block runs forever.
type Redis struct {
	rdb    commander
	ttl    time.Duration
	logger *zap.Logger
}

// Connect parses redisURL and verifies connectivity.
func Connect(ctx context.Context, redisURL string, ttl time.Duration, log *zap.Logger) (*Redis, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing redis url")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.WithHint(errors.Wrap(err, "redis ping failed"),
			"check redis-url or unset it to run without locking")
	}

	return NewRedis(client, ttl, log), client, nil
}

func NewRedis(rdb commander, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl, logger: logger.Component(log, "runlock")}
}

func (r *Redis) Acquire(ctx context.Context, name string) (Release, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "acquiring lock %s", name)
	}
	if !ok {
		return nil, errors.Wrapf(ErrHeld, "lock %s", name)
	}
	r.logger.Debug("lock acquired", zap.String("name", name), zap.Duration("ttl", r.ttl))

	return func(ctx context.Context) error {
		n, err := r.rdb.Eval(ctx, releaseScript, []string{key}, token).Int64()
		if err != nil {
			return errors.Wrapf(err, "releasing lock %s", name)
		}
		if n == 0 {
			r.logger.Warn("lock expired before release", zap.String("name", name))
		}
		return nil
	}, nil
}

// Noop grants every lock. It is used when redis is not configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
