package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeRedis keeps keys in memory and mimics the release script.
type fakeRedis struct {
	values map[string]interface{}
	ttls   map[string]time.Duration
	evals  int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]interface{}{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.evals++
	if f.values[keys[0]] == args[0] {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestAcquireIsExclusive(t *testing.T) {
	rdb := newFakeRedis()
	locker := NewRedis(rdb, time.Minute, nil)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "discover")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, rdb.ttls["jobhunter:lock:discover"])

	_, err = locker.Acquire(ctx, "discover")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHeld))

	_, err = locker.Acquire(ctx, "process")
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	_, err = locker.Acquire(ctx, "discover")
	require.NoError(t, err)
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rdb := newFakeRedis()
	locker := NewRedis(rdb, 0, zap.New(core))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "discover")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, rdb.ttls["jobhunter:lock:discover"])

	// The key expired and another instance took it over.
	rdb.values["jobhunter:lock:discover"] = "someone-else"

	require.NoError(t, release(ctx))
	assert.Equal(t, "someone-else", rdb.values["jobhunter:lock:discover"])
	assert.Equal(t, 1, logs.FilterMessage("lock expired before release").Len())
}

func TestAcquireWrapsRedisErrors(t *testing.T) {
	locker := NewRedis(failingRedis{}, time.Minute, nil)

	_, err := locker.Acquire(context.Background(), "discover")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHeld))
	assert.Contains(t, err.Error(), "acquiring lock discover")
}

type failingRedis struct{}

func (failingRedis) SetNX(context.Context, string, interface{}, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(false, errors.New("dial tcp: connection refused"))
}

func (failingRedis) Eval(context.Context, string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, errors.New("dial tcp: connection refused"))
}

func TestNoopAlwaysGrants(t *testing.T) {
	var locker Locker = Noop{}
	release, err := locker.Acquire(context.Background(), "discover")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}
