package goAuthClient

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by goAuthClient APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricRefreshStarted counts refresh cycles started.
	MetricRefreshStarted MetricID = iota
	// MetricRefreshSuccess counts refresh cycles that stored a new access token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh cycles that ended the session.
	MetricRefreshFailure
	// MetricRefreshQueued counts requests queued behind an in-flight refresh.
	MetricRefreshQueued
	// MetricRefreshNoToken counts failed cycles with no stored refresh token.
	MetricRefreshNoToken
	// MetricRefreshRejected counts failed cycles the refresh endpoint refused.
	MetricRefreshRejected
	// MetricRefreshTransportError counts failed cycles that could not reach the refresh endpoint.
	MetricRefreshTransportError
	// MetricRefreshStoreError counts failed cycles caused by the credential store.
	MetricRefreshStoreError
	// MetricRefreshRotated counts successful cycles that rotated the refresh token.
	MetricRefreshRotated
	// MetricRequestReplayed counts requests replayed after a 401.
	MetricRequestReplayed
	// MetricStaleTokenReplayed counts replays that reused a token stored by an earlier cycle.
	MetricStaleTokenReplayed
	// MetricRetryExhausted counts replays that received a second 401.
	MetricRetryExhausted
	// MetricReplayUnsupported counts 401s passed through because the body cannot be replayed.
	MetricReplayUnsupported
	// MetricProactiveRefresh counts refreshes triggered before the access token expired.
	MetricProactiveRefresh
	// MetricStoreReadFailure counts credential store reads that failed on the request path.
	MetricStoreReadFailure
	// MetricSessionExpired counts sessions ended by a failed refresh.
	MetricSessionExpired
	// MetricLogin counts credential pairs stored by Login.
	MetricLogin
	// MetricLogout counts sessions cleared by Logout.
	MetricLogout
	// MetricRefreshLatency is the refresh cycle latency histogram.
	MetricRefreshLatency
	metricIDCount
)
const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the refresh latency histogram. A nil
// or disabled *Metrics ignores every write.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot defines a public type used by goAuthClient APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc describes the inc operation and its observable behavior.
//
// Inc is allocation-free and can be used concurrently.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only histogram metrics accept
// observations.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRefreshLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot returns empty maps when metrics are disabled.
// Snapshot does not mutate shared global state and can be used concurrently.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRefreshLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRefreshLatency].buckets[i])
		}
		s.Histograms[MetricRefreshLatency] = buckets
	}

	return s
}

// Bucket upper bounds: 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 1000:
		return 6
	default:
		return 7
	}
}
