package dispatch

import (
	"context"
	"fmt"
	"time"

	"whatsapp-core/internal/metrics"
	"whatsapp-core/internal/pipeline"

	"github.com/rs/zerolog"
)

// Inline sends synchronously and schedules re-attempts on deferred timers.
// Retries are fire-and-forget: the original caller sees only the first
// attempt's outcome.
type Inline struct {
	Sender      Sender
	Policy      BackoffPolicy
	Metrics     *metrics.Collector
	Logger      zerolog.Logger
	SendTimeout time.Duration
}

func NewInline(sender Sender, policy BackoffPolicy, collector *metrics.Collector, logger zerolog.Logger) *Inline {
	if policy == nil {
		policy = DefaultSchedule
	}
	return &Inline{
		Sender:      sender,
		Policy:      policy,
		Metrics:     collector,
		Logger:      logger,
		SendTimeout: 30 * time.Second,
	}
}

func (d *Inline) Enqueue(ctx context.Context, p pipeline.Payload) error {
	return d.attempt(ctx, p, 0)
}

func (d *Inline) attempt(ctx context.Context, p pipeline.Payload, attempt int) error {
	_, err := d.Sender.SendAndPersist(ctx, p)
	if err == nil {
		return nil
	}

	delay, ok := d.Policy.NextDelay(attempt)
	if !ok {
		d.Logger.Error().
			Str("to", p.To).
			Int("attempt", attempt).
			Err(err).
			Msg("permanent failure, retries exhausted")
		d.Metrics.RecordFailed()
		return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
	}

	d.Logger.Warn().
		Str("to", p.To).
		Int("attempt", attempt).
		Dur("retry_in", delay).
		Err(err).
		Msg("send failed, retry scheduled")

	time.AfterFunc(delay, func() {
		// Retries outlive the original request.
		rctx, cancel := context.WithTimeout(context.Background(), d.SendTimeout)
		defer cancel()
		_ = d.attempt(rctx, p, attempt+1)
	})
	return err
}
