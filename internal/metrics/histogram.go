// Package metrics holds the allocation-free storage behind the client's
// counters and latency histograms. Export lives in metrics/export.
package metrics

import (
	"sync/atomic"
	"time"
)

// BucketCount is the number of latency buckets, the last one being +Inf.
const BucketCount = 8

const cacheLineSize = 64

// Counter is a cache-line padded monotonic counter.
type Counter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

func (c *Counter) Inc() { atomic.AddUint64(&c.value, 1) }

func (c *Counter) Load() uint64 { return atomic.LoadUint64(&c.value) }

// Histogram counts observations into fixed millisecond buckets:
// 5, 10, 25, 50, 100, 250, 500, +Inf.
type Histogram struct {
	buckets [BucketCount]uint64
}

func (h *Histogram) Observe(d time.Duration) {
	atomic.AddUint64(&h.buckets[BucketIndex(d)], 1)
}

// Snapshot returns the non-cumulative bucket counts.
func (h *Histogram) Snapshot() []uint64 {
	out := make([]uint64, BucketCount)
	for i := range out {
		out[i] = atomic.LoadUint64(&h.buckets[i])
	}
	return out
}

// BucketIndex maps a duration to its histogram bucket.
func BucketIndex(d time.Duration) int {
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
