// Package metrics exposes poll cycle observations as Prometheus collectors.
//
// Labels are limited to the cycle outcome so cardinality stays fixed.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PollMetrics = (*Poll)(nil)

// Poll implements driven.PollMetrics.
type Poll struct {
	cycles     *prometheus.CounterVec
	duration   prometheus.Histogram
	fresh      prometheus.Counter
	suppressed prometheus.Counter
	tracked    prometheus.Gauge
}

// NewPoll creates the collectors and registers them with reg.
func NewPoll(reg prometheus.Registerer) *Poll {
	p := &Poll{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghnotify_poll_cycles_total",
				Help: "Completed poll cycles by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ghnotify_poll_cycle_duration_seconds",
				Help:    "Duration of poll cycles in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		fresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghnotify_new_pull_requests_total",
			Help: "Pull requests seen for the first time.",
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghnotify_deliveries_suppressed_total",
			Help: "Notification batches withheld by snooze or quiet hours.",
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ghnotify_tracked_pull_requests",
			Help: "Pull requests matched by the last successful cycle.",
		}),
	}

	reg.MustRegister(p.cycles, p.duration, p.fresh, p.suppressed, p.tracked)

	// Pre-create outcome series so they are exported at zero.
	for _, outcome := range []string{driven.CycleOK, driven.CycleUnchanged, driven.CycleUnconfigured, driven.CycleError} {
		p.cycles.WithLabelValues(outcome)
	}

	return p
}

func (p *Poll) CycleCompleted(outcome string, duration time.Duration) {
	p.cycles.WithLabelValues(outcome).Inc()
	p.duration.Observe(duration.Seconds())
}

func (p *Poll) NewPullRequests(count int) {
	p.fresh.Add(float64(count))
}

func (p *Poll) DeliverySuppressed() {
	p.suppressed.Inc()
}

func (p *Poll) Tracked(count int) {
	p.tracked.Set(float64(count))
}
