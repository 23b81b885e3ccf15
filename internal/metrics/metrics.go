package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels probes that found the endpoint healthy and
	// remediations that restored it.
	OutcomeSuccess = "success"
	// OutcomeFailure labels unhealthy probes and remediations that left
	// the endpoint unhealthy.
	OutcomeFailure = "failure"
	// OutcomeError labels probes and remediations that could not complete.
	OutcomeError = "error"
)

var (
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aries_engine",
			Name:      "probes_total",
			Help:      "Total number of health probes, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	probeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aries_engine",
			Name:      "probe_seconds",
			Help:      "Health probe latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	remediationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aries_engine",
			Name:      "remediations_total",
			Help:      "Total number of remediation attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	remediationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aries_engine",
			Name:      "remediation_seconds",
			Help:      "Remediation attempt latency in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	escalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aries_engine",
			Name:      "escalations_total",
			Help:      "Total number of webhook escalations sent.",
		},
	)
)

// Register attaches engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		probesTotal,
		probeDurationSeconds,
		remediationsTotal,
		remediationDurationSeconds,
		escalationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveProbe records a probe duration and outcome label.
func ObserveProbe(duration time.Duration, outcome string) {
	probesTotal.WithLabelValues(normaliseOutcome(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	probeDurationSeconds.Observe(duration.Seconds())
}

// ObserveRemediation records a remediation attempt duration and outcome label.
func ObserveRemediation(duration time.Duration, outcome string) {
	remediationsTotal.WithLabelValues(normaliseOutcome(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	remediationDurationSeconds.Observe(duration.Seconds())
}

// IncEscalation counts one sent escalation.
func IncEscalation() {
	escalationsTotal.Inc()
}

func normaliseOutcome(outcome string) string {
	switch outcome {
	case OutcomeFailure, OutcomeError:
		return outcome
	default:
		return OutcomeSuccess
	}
}
