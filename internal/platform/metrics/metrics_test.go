package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAction("lookup_by_phone", "succeeded", 0.01)
	m.ObserveAction("lookup_by_phone", "succeeded", 0.02)
	m.IncGateDenial("create_claim")
	m.IncJournalWriteFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("lookup_by_phone", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDenials.WithLabelValues("create_claim")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JournalWriteFailures))
}
