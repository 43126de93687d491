// Package lock serializes runs that share a run key, across processes when redis is configured.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/config"
)

// ErrLocked is returned when the key is still held after the wait elapsed
var ErrLocked = errors.New("run lock is held by another process")

const (
	keyPrefix    = "fairway:run-lock:"
	defaultTTL   = 30 * time.Minute
	pollInterval = 250 * time.Millisecond
)

// Locker acquires exclusive ownership of a key
type Locker interface {
	// Acquire blocks up to wait for the key and returns a release func
	Acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error)
}

// releaseScript deletes the key only when the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRedisLocker creates a redis-backed locker. ttl bounds how long a crashed holder blocks others.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "run_lock"),
	}
}

// Acquire polls SET NX until it succeeds, wait elapses, or ctx is done
func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	redisKey := keyPrefix + key
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%s: %w", key, ErrLocked)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	l.logger.WithField("key", key).Debug("Run lock acquired")

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.WithError(err).WithField("key", key).Warn("Failed to release run lock")
		}
	}, nil
}

// LocalLocker implements Locker within one process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

// Acquire waits for the current holder of key to release, up to wait
func (l *LocalLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		done, busy := l.held[key]
		if !busy {
			done = make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-done:
		case <-timer.C:
			return nil, fmt.Errorf("%s: %w", key, ErrLocked)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// New returns a redis locker when redis is enabled, otherwise an in-process one.
// The returned close func releases the redis client.
func New(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (Locker, func() error, error) {
	if !cfg.Enabled {
		return NewLocalLocker(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.LockTTLSeconds) * time.Second
	return NewRedisLocker(client, ttl, logger), client.Close, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
