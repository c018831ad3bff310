package lock

import (
	"context"
	"sync"
	"time"

	ierr "focus-billing/internal/errors"
	"focus-billing/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errLockHeld = ierr.NewError("lock held by another holder").Mark(ierr.ErrInternal)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every replica of the service.
type RedisLocker struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
	log     *logger.Logger
}

// NewRedisLocker parses a redis:// URL. ttl bounds how long a crashed
// holder can block a user; timeout bounds how long Lock waits.
func NewRedisLocker(redisURL string, ttl, timeout time.Duration, log *logger.Logger) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("REDIS_URL must look like redis://host:6379/0").
			Mark(ierr.ErrValidation)
	}
	return NewRedisLockerWithClient(redis.NewClient(opts), ttl, timeout, log), nil
}

func NewRedisLockerWithClient(client *redis.Client, ttl, timeout time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, timeout: timeout, log: log}
}

// Ping checks connectivity.
func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisLocker) Close() error {
	return r.client.Close()
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = r.timeout

	acquire := func() error {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}

	if err := backoff.Retry(acquire, backoff.WithContext(b, ctx)); err != nil {
		if ierr.Is(err, errLockHeld) {
			return nil, ierr.WithError(err).
				WithMessagef("acquire lock %s within %s", key, r.timeout).
				Mark(ierr.ErrInternal)
		}
		return nil, ierr.WithError(err).
			WithMessagef("acquire lock %s", key).
			Mark(ierr.ErrDatabase)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must not be skipped because the request context ended.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, r.client, []string{key}, token).Err(); err != nil {
				r.log.Warnw("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}
