// Package dispatch routes outbound sends through one of two dispatcher
// implementations: inline retry with backoff, or a managed SQS queue with a
// polling consumer.
package dispatch

import (
	"context"
	"errors"
	"time"

	"whatsapp-core/internal/pipeline"
)

// ErrRetriesExhausted is terminal: the backoff schedule ran out and the
// message was dropped.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Dispatcher accepts one outbound payload for delivery. The two
// implementations are selected once at startup.
type Dispatcher interface {
	Enqueue(ctx context.Context, p pipeline.Payload) error
}

// Sender is the send pipeline.
type Sender interface {
	SendAndPersist(ctx context.Context, p pipeline.Payload) (*pipeline.Result, error)
}

// BackoffPolicy maps a zero-based attempt index to the delay before the next
// attempt. ok=false means no further attempts are allowed.
type BackoffPolicy interface {
	NextDelay(attempt int) (delay time.Duration, ok bool)
}

// Schedule is a fixed backoff schedule, one delay per retry.
type Schedule []time.Duration

func (s Schedule) NextDelay(attempt int) (time.Duration, bool) {
	if attempt < 0 || attempt >= len(s) {
		return 0, false
	}
	return s[attempt], true
}

// DefaultSchedule retries after 10s, 60s and 5m.
var DefaultSchedule = Schedule{10 * time.Second, time.Minute, 5 * time.Minute}
