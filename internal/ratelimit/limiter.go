// Package ratelimit enforces a per-recipient, per-minute outbound quota backed
// by an atomic Redis counter.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimitExceeded is raised when a recipient's per-minute ceiling is hit.
// The limiter never retries; that is the dispatcher's decision.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type Limiter struct {
	Client  *redis.Client
	Ceiling int64
}

func NewLimiter(client *redis.Client, ceiling int) *Limiter {
	return &Limiter{Client: client, Ceiling: int64(ceiling)}
}

// Enforce increments the recipient's bucket for the current UTC minute and
// fails with ErrRateLimitExceeded once the ceiling is crossed. The increment
// and the bucket TTL are pipelined so a bucket can never be created without
// an expiry.
func (l *Limiter) Enforce(ctx context.Context, recipient string) error {
	key := bucketKey(recipient, time.Now().UTC())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() > l.Ceiling {
		return fmt.Errorf("%w: %s sent %d in current minute", ErrRateLimitExceeded, recipient, incr.Val())
	}
	return nil
}

// Ping reports whether the counter store is reachable, for readiness probes.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.Client.Ping(ctx).Err()
}

func bucketKey(recipient string, now time.Time) string {
	return fmt.Sprintf("rl:%s:%s", recipient, now.Format("200601021504"))
}
