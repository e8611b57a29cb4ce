// Package metrics exposes poller counters to prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bmspoller"

// Metrics groups the poller collectors.
type Metrics struct {
	reads       *prometheus.CounterVec
	busErrors   *prometheus.CounterVec
	decodeErrs  *prometheus.CounterVec
	cache       *prometheus.CounterVec
	passFails   *prometheus.CounterVec
	deviceState *prometheus.GaugeVec
	lastPoll    *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_reads_total",
			Help:      "Field reads by outcome (read, cached, skipped).",
		}, []string{"device", "outcome"}),
		busErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Failed register or coil reads per channel.",
		}, []string{"channel"}),
		decodeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Responses that could not be decoded.",
		}, []string{"device"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups per tier and result.",
		}, []string{"tier", "result"}),
		passFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pass_failures_total",
			Help:      "Refresh passes aborted by a mandatory field.",
		}, []string{"device", "pass"}),
		deviceState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_state",
			Help:      "Device state (0 unidentified, 1 version resolved, 2 settings loaded, 3 polling).",
		}, []string{"device"}),
		lastPoll: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last successful poll.",
		}, []string{"device"}),
	}

	if reg != nil {
		reg.MustRegister(m.reads, m.busErrors, m.decodeErrs, m.cache, m.passFails, m.deviceState, m.lastPoll)
	}
	return m
}

func (m *Metrics) FieldRead(device, outcome string) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(device, outcome).Inc()
}

func (m *Metrics) TransportError(channel string) {
	if m == nil {
		return
	}
	m.busErrors.WithLabelValues(channel).Inc()
}

func (m *Metrics) DecodeError(device string) {
	if m == nil {
		return
	}
	m.decodeErrs.WithLabelValues(device).Inc()
}

// CacheLookup counts one lookup in tier ("field" or "probe").
func (m *Metrics) CacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) PassFailed(device, pass string) {
	if m == nil {
		return
	}
	m.passFails.WithLabelValues(device, pass).Inc()
}

func (m *Metrics) DeviceState(device string, state int) {
	if m == nil {
		return
	}
	m.deviceState.WithLabelValues(device).Set(float64(state))
}

func (m *Metrics) Polled(device string, unix float64) {
	if m == nil {
		return
	}
	m.lastPoll.WithLabelValues(device).Set(unix)
}
