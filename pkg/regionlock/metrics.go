package regionlock

import "github.com/prometheus/client_golang/prometheus"

// metricSet groups the Prometheus collectors exposed by this package.
// All are registered lazily via RegisterMetrics so embedding
// applications (the CLI harness, or any other host process) control
// whether and where they're exposed.
type metricSet struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	blockedGauge    *prometheus.GaugeVec
	sweptOwners     prometheus.Counter
	segmentsOpen    prometheus.Gauge
}

func newMetricSet() *metricSet {
	return &metricSet{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regionlock",
			Name:      "requests_total",
			Help:      "Lock requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "regionlock",
			Name:      "request_duration_seconds",
			Help:      "Time spent inside Request, including any blocking wait.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		blockedGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "regionlock",
			Name:      "blocked_waiters",
			Help:      "Best-effort count of waiters currently backed off on a segment.",
		}, []string{"segment"}),
		sweptOwners: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regionlock",
			Name:      "swept_owners_total",
			Help:      "Owner entries removed by the liveness sweeper because their pid no longer exists.",
		}),
		segmentsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "regionlock",
			Name:      "segments_open",
			Help:      "Shared segments currently attached by this process.",
		}),
	}
}

// defaultMetrics is nil until RegisterMetrics is called, so an
// embedding application that never calls it pays no Prometheus cost.
var defaultMetrics *metricSet

// RegisterMetrics creates this package's collectors and registers them
// against reg. Safe to call once per process; calling it again panics,
// matching prometheus.Registry's own double-registration behaviour.
func RegisterMetrics(reg prometheus.Registerer) {
	m := newMetricSet()
	reg.MustRegister(m.requests, m.requestDuration, m.blockedGauge, m.sweptOwners, m.segmentsOpen)
	defaultMetrics = m
}

func observeRequest(op Op, duration float64, err error) {
	if defaultMetrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		if k, ok := kindOf(err); ok {
			outcome = k.String()
		} else {
			outcome = "error"
		}
	}
	defaultMetrics.requests.WithLabelValues(opLabel(op), outcome).Inc()
	defaultMetrics.requestDuration.WithLabelValues(opLabel(op)).Observe(duration)
}

func opLabel(op Op) string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpUnlock:
		return "unlock"
	default:
		return "unknown"
	}
}

// updateBlockedGauge mirrors a segment's sleeper count into the
// blocked-waiters gauge. Callers hold the segment mutex.
func updateBlockedGauge(s *segment) {
	if defaultMetrics == nil {
		return
	}
	defaultMetrics.blockedGauge.WithLabelValues(s.name).Set(float64(s.table.BlockedCount))
}

func observeSweep(count int) {
	if defaultMetrics == nil || count == 0 {
		return
	}
	defaultMetrics.sweptOwners.Add(float64(count))
}
