package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetricsWith(reg).(*dispatchMetrics)

	m.RecordOperation("read", "served", "", 2*time.Millisecond)
	m.RecordOperation("read", "rejected", "not_found", time.Millisecond)
	m.RecordOperation("read", "served", "", time.Millisecond)
	m.RecordBytes("read", 42)
	m.RecordPolicyRejection("escape")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("read", "served", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("read", "rejected", "not_found")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.policyRejections.WithLabelValues("escape")))

	count, err := testutil.GatherAndCount(reg, "wex_dispatch_operation_duration_milliseconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWith(reg).(*httpMetrics)

	m.RecordRequestStart()
	m.RecordRequestStart()
	m.RecordRequestEnd()
	m.RecordRequest("GET", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "404")))
}
