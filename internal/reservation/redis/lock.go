package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/logger"
)

const (
	defaultLockTTL       = 10 * time.Second
	defaultLockWait      = 5 * time.Second
	defaultRetryInterval = 20 * time.Millisecond
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis serialises capacity-sensitive writes per event with a SETNX lock.
type Redis struct {
	Client        *redis.Client
	Logger        *logger.Logger
	TTL           time.Duration
	Wait          time.Duration
	RetryInterval time.Duration
}

func NewRedis(client *redis.Client, ttl, wait time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait < 0 {
		wait = defaultLockWait
	}
	return &Redis{
		Client:        client,
		Logger:        log,
		TTL:           ttl,
		Wait:          wait,
		RetryInterval: defaultRetryInterval,
	}
}

func lockKey(eventID string) string {
	return "event_lock:" + eventID
}

// TryLockEvent makes a single attempt to take the lock for eventID.
func (r *Redis) TryLockEvent(ctx context.Context, eventID, token string) (bool, error) {
	return r.Client.SetNX(ctx, lockKey(eventID), token, r.TTL).Result()
}

// AcquireEventLock retries until the lock is taken or Wait elapses, in which case
// the event is reported busy as a Conflict.
func (r *Redis) AcquireEventLock(ctx context.Context, eventID, token string) error {
	deadline := time.Now().Add(r.Wait)
	interval := r.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	for attempt := 1; ; attempt++ {
		ok, err := r.TryLockEvent(ctx, eventID, token)
		if err != nil {
			return fmt.Errorf("acquire event lock %s: %w", eventID, err)
		}
		if ok {
			if attempt > 1 {
				r.Logger.Debug("LOCK", fmt.Sprintf("Event %s locked after %d attempts", eventID, attempt))
			}
			return nil
		}
		if !time.Now().Before(deadline) {
			r.Logger.Warn("LOCK", fmt.Sprintf("Gave up waiting for lock on event %s", eventID))
			return apperr.Conflict("event %s is busy, try again", eventID)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ReleaseEventLock removes the lock if token still owns it. An expired or
// foreign lock is left untouched.
func (r *Redis) ReleaseEventLock(ctx context.Context, eventID, token string) error {
	n, err := releaseScript.Run(ctx, r.Client, []string{lockKey(eventID)}, token).Int()
	if err != nil {
		return fmt.Errorf("release event lock %s: %w", eventID, err)
	}
	if n == 0 {
		r.Logger.Warn("LOCK", fmt.Sprintf("Lock on event %s was no longer held by %s", eventID, token))
	}
	return nil
}

// IsEventLocked checks the lock without taking it.
func (r *Redis) IsEventLocked(ctx context.Context, eventID string) (bool, error) {
	n, err := r.Client.Exists(ctx, lockKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
