package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus mirrors of the collector counters, for scraping alongside the
// JSON snapshot endpoint.
var (
	SentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "messages_sent_total", Help: "Outbound messages accepted by the provider."},
	)
	DeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "messages_delivered_total", Help: "Delivery receipts observed."},
	)
	ReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "messages_read_total", Help: "Read receipts observed."},
	)
	FailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "messages_failed_total", Help: "Permanently failed sends."},
	)
	SendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provider_send_duration_seconds",
			Help:    "Provider send latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms..~40s
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(SentTotal, DeliveredTotal, ReadTotal, FailedTotal, SendDuration)
}

// Collector keeps in-process counters and derives rates on demand. It is an
// injected sink rather than package-level state so instances never merge.
type Collector struct {
	mu        sync.Mutex
	sent      int64
	delivered int64
	read      int64
	failed    int64
	totalTime time.Duration
	count     int64
}

func NewCollector() *Collector {
	return &Collector{}
}

type Snapshot struct {
	Sent        int64   `json:"sent"`
	Delivered   int64   `json:"delivered"`
	Read        int64   `json:"read"`
	Failed      int64   `json:"failed"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	SuccessRate float64 `json:"success_rate"`
}

func (c *Collector) RecordSent(elapsed time.Duration) {
	c.mu.Lock()
	c.sent++
	c.totalTime += elapsed
	c.count++
	c.mu.Unlock()
	SentTotal.Inc()
	SendDuration.Observe(elapsed.Seconds())
}

func (c *Collector) RecordDelivered() {
	c.mu.Lock()
	c.delivered++
	c.mu.Unlock()
	DeliveredTotal.Inc()
}

func (c *Collector) RecordRead() {
	c.mu.Lock()
	c.read++
	c.mu.Unlock()
	ReadTotal.Inc()
}

func (c *Collector) RecordFailed() {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
	FailedTotal.Inc()
}

// GetMetrics derives avg_time_ms and success_rate, with zero guards.
func (c *Collector) GetMetrics() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Sent:      c.sent,
		Delivered: c.delivered,
		Read:      c.read,
		Failed:    c.failed,
	}
	if c.count > 0 {
		s.AvgTimeMs = float64(c.totalTime.Milliseconds()) / float64(c.count)
	}
	if c.sent > 0 {
		s.SuccessRate = float64(c.delivered+c.read) / float64(c.sent) * 100
	}
	return s
}

type Alert struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail"`
}

// CheckAlerts flags a failure rate above 10% and an average latency above
// 5000ms. Warnings only; nothing is remediated automatically.
func (c *Collector) CheckAlerts() []Alert {
	s := c.GetMetrics()
	var alerts []Alert

	attempts := s.Sent + s.Failed
	if attempts > 0 {
		failureRate := float64(s.Failed) / float64(attempts) * 100
		if failureRate > 10 {
			alerts = append(alerts, Alert{
				Name:   "high_failure_rate",
				Value:  failureRate,
				Detail: "failure rate above 10%",
			})
		}
	}
	if s.AvgTimeMs > 5000 {
		alerts = append(alerts, Alert{
			Name:   "high_latency",
			Value:  s.AvgTimeMs,
			Detail: "average send latency above 5000ms",
		})
	}
	return alerts
}
