package funnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"linkpay-platform/internal/metrics"
	"linkpay-platform/internal/model"
	"linkpay-platform/internal/testutil"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)
	assert.Len(t, a, 2*tokenBytes)
	assert.NotEqual(t, a, b)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := NewRedisStore(rdb, zap.NewNop().Sugar())
	ctx := context.Background()

	now := time.Now()
	sess := Session{Token: "tok", Code: "abc1234", IssuedAt: now, ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, store.Save(ctx, sess))
	assert.Error(t, store.Save(ctx, sess), "重复 token 不能覆盖")

	got, err := store.Consume(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, "abc1234", got.Code)
	assert.True(t, got.IssuedAt.Equal(now))

	_, err = store.Consume(ctx, "tok", now)
	assert.ErrorIs(t, err, ErrSessionReplayed)

	_, err = store.Consume(ctx, "missing", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, Session{Token: "old", Code: "x", IssuedAt: now, ExpiresAt: now.Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)
	_, err = store.Consume(ctx, "old", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	n, err := store.Purge(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// failSet 让 SET 命令失败，其余命令照常执行
type failSet struct{}

func (failSet) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failSet) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "set" {
			err := errors.New("set unavailable")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failSet) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisStore_ConsumedMarkerFailureIsLogged(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	core, logs := observer.New(zap.WarnLevel)
	store := NewRedisStore(rdb, zap.New(core).Sugar())
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Save(ctx, Session{Token: "tok", Code: "abc1234", IssuedAt: now, ExpiresAt: now.Add(10 * time.Minute)}))

	rdb.AddHook(failSet{})
	got, err := store.Consume(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, "abc1234", got.Code)

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "消费标记")

	// 没有标记时重放按未找到拒绝，但仍然拒绝
	_, err = store.Consume(ctx, "tok", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGormStore_PurgeExpired(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, Session{Token: "expired", Code: "a", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, Session{Token: "live", Code: "a", IssuedAt: now, ExpiresAt: now.Add(time.Minute)}))

	j := NewJanitor(store, time.Hour, metrics.New(), zap.NewNop().Sugar())
	j.now = func() time.Time { return now }

	n, err := j.PurgeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left []model.ClickSession
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "live", left[0].Token)
}

func TestJanitor_StartStop(t *testing.T) {
	store := NewGormStore(testutil.NewDB(t))
	j := NewJanitor(store, 10*time.Millisecond, nil, zap.NewNop().Sugar())
	j.Start()
	time.Sleep(30 * time.Millisecond)
	j.Stop()
	j.Stop()
}
