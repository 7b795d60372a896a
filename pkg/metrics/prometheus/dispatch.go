package prometheus

import (
	"sync"
	"time"

	"github.com/marmos91/wex/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dispatchMetrics is the Prometheus implementation of metrics.DispatchMetrics.
type dispatchMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	policyRejections  *prometheus.CounterVec
}

var (
	dispatchOnce     sync.Once
	dispatchInstance metrics.DispatchMetrics
)

// NewDispatchMetrics returns the Prometheus-backed DispatchMetrics registered
// on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not
// called). Collectors are registered once; later calls return the same
// instance.
func NewDispatchMetrics() metrics.DispatchMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopDispatchMetrics()
	}

	dispatchOnce.Do(func() {
		dispatchInstance = NewDispatchMetricsWith(metrics.GetRegistry())
	})
	return dispatchInstance
}

// NewDispatchMetricsWith registers dispatch collectors on reg.
func NewDispatchMetricsWith(reg prometheus.Registerer) metrics.DispatchMetrics {
	return &dispatchMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wex_dispatch_operations_total",
				Help: "Total number of dispatched file operations by operation, status and error kind",
			},
			[]string{"operation", "status", "kind"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wex_dispatch_operation_duration_milliseconds",
				Help: "Duration of dispatched file operations in milliseconds",
				Buckets: []float64{
					0.1,  // 100µs
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wex_dispatch_bytes_total",
				Help: "Total file bytes read or written",
			},
			[]string{"direction"},
		),
		policyRejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wex_dispatch_policy_rejections_total",
				Help: "Requests refused by path policy before reaching the filesystem",
			},
			[]string{"reason"},
		),
	}
}

func (m *dispatchMetrics) RecordOperation(operation, status, kind string, duration time.Duration) {
	m.operationsTotal.WithLabelValues(operation, status, kind).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *dispatchMetrics) RecordBytes(direction string, bytes int) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *dispatchMetrics) RecordPolicyRejection(reason string) {
	m.policyRejections.WithLabelValues(reason).Inc()
}
