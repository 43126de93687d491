package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/logger"
)

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "run-a", time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "run-a", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, "run-b", 0)
	require.NoError(t, err, "different keys do not contend")
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "run-a", 0)
	require.NoError(t, err)
	again()
}

func TestLocalLockerWaitsForRelease(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "run-a", time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	second, err := l.Acquire(ctx, "run-a", 2*time.Second)
	require.NoError(t, err)
	second()
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "run-a", time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "run-a", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWithoutRedis(t *testing.T) {
	locker, closeFn, err := New(context.Background(), config.RedisConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &LocalLocker{}, locker)
	assert.NoError(t, closeFn())
}

func TestRedisLockerIntegration(t *testing.T) {
	addr := os.Getenv("FAIRWAY_EDGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires redis")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	l := NewRedisLocker(client, 5*time.Second, logger.Discard())
	ctx := context.Background()

	release, err := l.Acquire(ctx, "integration", time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "integration", 300*time.Millisecond)
	assert.ErrorIs(t, err, ErrLocked)

	release()

	again, err := l.Acquire(ctx, "integration", time.Second)
	require.NoError(t, err)
	again()
}
