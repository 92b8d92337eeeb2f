package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reporter logs a snapshot of the collector on a fixed interval and surfaces
// any active alerts as warnings.
type Reporter struct {
	Collector *Collector
	Interval  time.Duration
	Logger    zerolog.Logger
}

func (r *Reporter) Run(ctx context.Context) {
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := r.Collector.GetMetrics()
			r.Logger.Info().
				Int64("sent", s.Sent).
				Int64("delivered", s.Delivered).
				Int64("read", s.Read).
				Int64("failed", s.Failed).
				Float64("avg_time_ms", s.AvgTimeMs).
				Float64("success_rate", s.SuccessRate).
				Msg("metrics report")

			for _, a := range r.Collector.CheckAlerts() {
				r.Logger.Warn().
					Str("alert", a.Name).
					Float64("value", a.Value).
					Msg(a.Detail)
			}
		}
	}
}
