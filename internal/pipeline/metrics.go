package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes run-level counters and phase timings. A nil registerer
// yields unregistered collectors, which keeps tests quiet.
type Metrics struct {
	runsTotal         *prometheus.CounterVec
	meetingsProcessed prometheus.Counter
	meetingsPartial   prometheus.Counter
	meetingsFailed    prometheus.Counter
	phaseDuration     *prometheus.HistogramVec
}

// NewMetrics registers the pipeline collectors with the given registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minutebook",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by mode.",
		}, []string{"mode"}),
		meetingsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "minutebook",
			Subsystem: "pipeline",
			Name:      "meetings_processed_total",
			Help:      "Meetings that completed every applicable phase.",
		}),
		meetingsPartial: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "minutebook",
			Subsystem: "pipeline",
			Name:      "meetings_partial_total",
			Help:      "Meetings archived with gaps after data-shape failures.",
		}),
		meetingsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "minutebook",
			Subsystem: "pipeline",
			Name:      "meetings_failed_total",
			Help:      "Meetings marked failed during a run.",
		}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "minutebook",
			Subsystem: "pipeline",
			Name:      "phase_duration_seconds",
			Help:      "Wall time spent per phase per meeting.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"phase"}),
	}
}

func (m *Metrics) observePhase(phase string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}

func (m *Metrics) countRun(mode string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) countResult(status MeetingStatus) {
	if m == nil {
		return
	}
	switch status {
	case StatusProcessed:
		m.meetingsProcessed.Inc()
	case StatusPartial:
		m.meetingsPartial.Inc()
	case StatusFailed:
		m.meetingsFailed.Inc()
	}
}
