package passgate

import (
	"sync/atomic"
	"time"
)

// MetricID indexes one engine counter. Values are dense and stable within
// a release; exporters map them to wire names.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that issued a session token.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected for bad credentials.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused before any credential
	// check because a budget was exhausted.
	MetricLoginRateLimited
	// MetricTOTPRequired counts password-only logins that were told to
	// come back with a second factor.
	MetricTOTPRequired
	// MetricTOTPSuccess counts accepted TOTP codes, login and lifecycle.
	MetricTOTPSuccess
	// MetricTOTPFailure counts rejected TOTP codes.
	MetricTOTPFailure
	// MetricTOTPEnabled counts accounts turning the second factor on.
	MetricTOTPEnabled
	// MetricTOTPDisabled counts accounts turning the second factor off.
	MetricTOTPDisabled
	// MetricBackupCodeUsed counts recovery codes redeemed at login.
	MetricBackupCodeUsed
	// MetricBackupCodeFailed counts recovery codes that matched nothing.
	MetricBackupCodeFailed
	// MetricBackupCodeRegenerated counts full batch replacements.
	MetricBackupCodeRegenerated
	// MetricSessionIssued counts signed session tokens handed out.
	MetricSessionIssued
	// MetricValidateSuccess counts tokens that passed validation.
	MetricValidateSuccess
	// MetricValidateFailure counts tokens rejected for any reason.
	MetricValidateFailure
	// MetricPasswordChangeSuccess counts completed password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeInvalidOld counts changes rejected because the
	// current password did not verify.
	MetricPasswordChangeInvalidOld
	// MetricPasswordChangeReuseRejected counts changes rejected for
	// reusing the current password.
	MetricPasswordChangeReuseRejected
	// MetricValidateLatency is the token validation latency histogram. It
	// has no counter semantics; use Observe, not Inc.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps each counter on its own cache line so hot adjacent
// counters do not false-share under concurrent load.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed-size set of atomic counters plus one latency
// histogram. A nil or disabled Metrics accepts every call and records
// nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
// Counters observed mid-operation may be mutually inconsistent; each value
// is individually atomic.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a recorder honoring cfg. Latency histograms require
// the counter set itself to be enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether this recorder keeps counters at all.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether validation latency is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter. Unknown IDs and disabled recorders are
// ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample. Only MetricValidateLatency carries a
// histogram; every other ID is ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter. Disabled recorders read as zero.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and the validation histogram into maps
// safe for the caller to keep.
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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
