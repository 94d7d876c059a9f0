package ops

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts installer activity. A nil *Metrics records nothing.
type Metrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	filesWritten    prometheus.Counter
	filesFailed     prometheus.Counter
	backups         prometheus.Counter
	manifestFetches *prometheus.CounterVec
}

// NewMetrics registers the installer metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultcap",
			Name:      "operations_total",
			Help:      "Capsule install, update and remove operations by outcome",
		}, []string{"action", "state"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vaultcap",
			Name:      "operation_duration_seconds",
			Help:      "Capsule operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),

		filesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vaultcap",
			Name:      "files_written_total",
			Help:      "Capsule files written into the vault",
		}),

		filesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vaultcap",
			Name:      "files_failed_total",
			Help:      "Capsule files skipped after a fetch or write error",
		}),

		backups: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vaultcap",
			Name:      "backups_total",
			Help:      "Locally edited files backed up before overwrite",
		}),

		manifestFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultcap",
			Name:      "manifest_fetches_total",
			Help:      "Manifest refreshes by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeOperation(action string, state State, started time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(action, string(state)).Inc()
	m.duration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeFiles(written, failed, backups int) {
	if m == nil {
		return
	}
	m.filesWritten.Add(float64(written))
	m.filesFailed.Add(float64(failed))
	m.backups.Add(float64(backups))
}

func (m *Metrics) observeFetch(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.manifestFetches.WithLabelValues(result).Inc()
}
