package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opmetrics"

// Metrics instruments the merge coordinator.
type Metrics struct {
	RecordsMerged  prometheus.Counter
	RecordsSkipped prometheus.Counter
	QueueLength    prometheus.Gauge
	QueueCapacity  prometheus.Gauge
	MergeDuration  prometheus.Histogram
}

// NewMetrics creates the coordinator metrics and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "records_merged_total",
			Help:      "Total records merged into the aggregate.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "records_skipped_total",
			Help:      "Total submitted records that carried no data.",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "queue_length",
			Help:      "Records waiting to be merged.",
		}),
		QueueCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "queue_capacity",
			Help:      "Capacity of the merge queue.",
		}),
		MergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "merge_duration_seconds",
			Help:      "Time to merge a single record into the aggregate.",
			Buckets:   []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01}, // 1us-10ms
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RecordsMerged,
			m.RecordsSkipped,
			m.QueueLength,
			m.QueueCapacity,
			m.MergeDuration,
		)
	}

	return m
}
