package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FieldRead("d", "read")
		m.TransportError("bus0")
		m.DecodeError("d")
		m.CacheLookup("field", true)
		m.PassFailed("d", "status")
		m.DeviceState("d", 3)
		m.Polled("d", 1)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FieldRead("bank1", "read")
	m.FieldRead("bank1", "read")
	m.FieldRead("bank1", "cached")
	m.CacheLookup("probe", false)
	m.DeviceState("bank1", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reads.WithLabelValues("bank1", "read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reads.WithLabelValues("bank1", "cached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("probe", "miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deviceState.WithLabelValues("bank1")))

	n, err := testutil.GatherAndCount(reg, "bmspoller_field_reads_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
