package adminauth

import (
	"time"

	internalmetrics "github.com/MrEthical07/adminauth/internal/metrics"
)

// MetricID identifies one client counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLockedOut
	MetricLockoutTriggered
	MetricLockoutExpired
	MetricLoginTransportFailure
	MetricLogout
	MetricLogoutRemoteFailure
	MetricSessionInvalidated
	MetricOTPVerified
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordUpdate
	MetricRegister
	MetricRequestFailure
	MetricRequestTransportFailure
	// MetricRequestLatency is the only histogram.
	MetricRequestLatency
	metricIDCount
)

// Metrics is a fixed set of atomic counters. A nil or disabled Metrics records
// nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]internalmetrics.Counter
	latency       internalmetrics.Histogram
}

// MetricsSnapshot is a point-in-time copy of every metric. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates metrics from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Inc()
}

// Observe records a request latency. Other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricRequestLatency {
		return
	}
	m.latency.Observe(d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = m.counters[id].Load()
	}
	if m.enableLatency {
		s.Histograms[MetricRequestLatency] = m.latency.Snapshot()
	}
	return s
}

// requestObserver feeds gateway round trips into the client metrics.
type requestObserver struct {
	metrics *Metrics
}

func (o requestObserver) ObserveRequest(_, _ string, status int, elapsed time.Duration) {
	o.metrics.Observe(MetricRequestLatency, elapsed)
	switch {
	case status == 0 || status >= 500:
		o.metrics.Inc(MetricRequestTransportFailure)
	case status >= 400:
		o.metrics.Inc(MetricRequestFailure)
	}
}
