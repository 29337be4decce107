package distlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_MutualExclusion(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "newsletter:publish", time.Minute)
	b := NewRedisLock(client, "newsletter:publish", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// b cannot release a's lock.
	require.NoError(t, b.Release(ctx))
	ok, _ = b.Acquire(ctx)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_TTLExpiry(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "k", time.Second)
	ok, _ := a.Acquire(ctx)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	b := NewRedisLock(client, "k", time.Second)
	ok, err := b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.ErrorIs(t, a.Extend(ctx, time.Minute), ErrNotAcquired)
}

func TestRedisLock_Extend(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "k", time.Second)
	ok, _ := a.Acquire(ctx)
	require.True(t, ok)
	require.NoError(t, a.Extend(ctx, time.Minute))
	assert.Greater(t, mr.TTL("lock:k"), 30*time.Second)
}

func TestAcquireWait(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "k", time.Minute)
	ok, _ := holder.Acquire(ctx)
	require.True(t, ok)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = holder.Release(context.Background())
	}()

	waiter := NewRedisLock(client, "k", time.Minute)
	require.NoError(t, AcquireWait(ctx, waiter, 10*time.Millisecond))
}

func TestAcquireWait_ContextEnds(t *testing.T) {
	_, client := newRedis(t)
	holder := NewRedisLock(client, "k", time.Minute)
	ok, _ := holder.Acquire(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err := AcquireWait(ctx, NewRedisLock(client, "k", time.Minute), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestFactory_PrefersRedis(t *testing.T) {
	_, client := newRedis(t)
	assert.IsType(t, &RedisLock{}, NewFactory(client, nil)("k", time.Second))
	assert.IsType(t, &PGAdvisoryLock{}, NewFactory(nil, nil)("k", time.Second))
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "newsletter:publish")

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(l.lockID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Release(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_Busy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "newsletter:publish")
	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, l.Release(context.Background()), "release without hold is a no-op")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeepalive_ExtendsRedisLock(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	ttl := 150 * time.Millisecond
	a := NewRedisLock(client, "k", ttl)
	ok, _ := a.Acquire(ctx)
	require.True(t, ok)

	stop := Keepalive(ctx, a, ttl, func(err error) { t.Errorf("extend: %v", err) })
	// miniredis only expires keys on FastForward, so advance its clock in
	// steps shorter than the TTL while the heartbeat runs in real time.
	for i := 0; i < 8; i++ {
		time.Sleep(ttl / 2)
		mr.FastForward(ttl / 4)
	}
	stop()

	assert.True(t, mr.Exists("lock:k"), "lock outlived several TTLs")
	b := NewRedisLock(client, "k", ttl)
	ok, err := b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Once stopped the lock is allowed to lapse.
	mr.FastForward(2 * ttl)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeepalive_ReportsLostLock(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	ttl := 60 * time.Millisecond
	a := NewRedisLock(client, "k", ttl)
	ok, _ := a.Acquire(ctx)
	require.True(t, ok)
	mr.Del("lock:k")

	var (
		mu   sync.Mutex
		errs []error
	)
	stop := Keepalive(ctx, a, ttl, func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	defer stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, time.Second, 10*time.Millisecond)

	// The heartbeat gives up after the first ErrNotAcquired.
	time.Sleep(3 * ttl)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNotAcquired)
}

func TestKeepalive_NoopForAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stop := Keepalive(context.Background(), NewPGAdvisoryLock(db, "k"), time.Millisecond, func(err error) {
		t.Errorf("unexpected extend error: %v", err)
	})
	time.Sleep(10 * time.Millisecond)
	stop()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_UnlockFailureDiscardsConn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "newsletter:publish")
	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(l.lockID).
		WillReturnError(errors.New("connection reset"))
	// The session still holds the lock, so it must be closed rather than
	// returned to the pool.
	mock.ExpectClose()

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	err = l.Release(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, db.Stats().OpenConnections)
	require.NoError(t, l.Release(context.Background()), "second release is a no-op")
}
