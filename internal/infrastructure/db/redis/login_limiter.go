package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLockoutWindow = 15 * time.Minute

// LoginLimiter counts failed password attempts per email in Redis.
// Key format: login_fail:<email>, expiring after the lockout window so a
// lockout releases itself without operator action.
type LoginLimiter struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
}

// NewLoginLimiter creates a limiter locking out after maxFailures failed
// attempts within the window.
func NewLoginLimiter(client *redis.Client, maxFailures int, window time.Duration) *LoginLimiter {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if window <= 0 {
		window = defaultLockoutWindow
	}
	return &LoginLimiter{client: client, maxFailures: maxFailures, window: window}
}

// LockedOut reports whether the email has reached the failure threshold.
func (l *LoginLimiter) LockedOut(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(email)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lockout check: %w", err)
	}
	return n >= l.maxFailures, nil
}

// RecordFailure increments the failure counter and refreshes its expiry.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	key := l.key(email)
	if err := l.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("reset failures: %w", err)
	}
	return nil
}

func (l *LoginLimiter) key(email string) string {
	return fmt.Sprintf("login_fail:%s", email)
}
