package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("booking lock not acquired")

// Locker guards booking critical sections per practitioner calendar day. It is
// a fast-fail front guard only; the database advisory lock remains the
// correctness authority.
type Locker interface {
	WithBookingLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// BookingLockKey names the lock for one practitioner on one UTC calendar day.
func BookingLockKey(practitionerID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("lock:practitioner:%s:%s", practitionerID, day.UTC().Format("2006-01-02"))
}

type redisBookingLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBookingLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisBookingLocker{
		client: client,
		ttl:    ttl,
	}
}

// WithBookingLocks acquires every key in sorted order so two requests locking
// overlapping key sets cannot deadlock. If any key is already held the whole
// acquisition fails and earlier keys are released.
func (l *redisBookingLocker) WithBookingLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	sorted := dedupeSorted(keys)
	token := uuid.NewString()

	acquired := make([]string, 0, len(sorted))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			_ = l.release(ctx, acquired[i], token)
		}
	}

	for _, key := range sorted {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			release()
			return fmt.Errorf("acquire booking lock %s: %w", key, err)
		}
		if !ok {
			release()
			return ErrLockNotAcquired
		}
		acquired = append(acquired, key)
	}

	defer release()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisBookingLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock %s: %w", key, err)
	}
	return nil
}

func dedupeSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
