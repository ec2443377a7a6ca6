package metrics

import (
	"testing"
	"time"
)

func TestBucketIndexBoundaries(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       0,
		5 * time.Millisecond:    0,
		6 * time.Millisecond:    1,
		25 * time.Millisecond:   2,
		26 * time.Millisecond:   3,
		100 * time.Millisecond:  4,
		250 * time.Millisecond:  5,
		500 * time.Millisecond:  6,
		501 * time.Millisecond:  7,
		30 * time.Second:        7,
	}
	for d, want := range cases {
		if got := BucketIndex(d); got != want {
			t.Fatalf("BucketIndex(%s) = %d, want %d", d, got, want)
		}
	}
}

func TestHistogramSnapshot(t *testing.T) {
	var h Histogram
	h.Observe(time.Millisecond)
	h.Observe(time.Millisecond)
	h.Observe(time.Second)

	snap := h.Snapshot()
	if len(snap) != BucketCount {
		t.Fatalf("expected %d buckets, got %d", BucketCount, len(snap))
	}
	if snap[0] != 2 || snap[7] != 1 {
		t.Fatalf("unexpected buckets %v", snap)
	}
}

func TestCounter(t *testing.T) {
	var c Counter
	for i := 0; i < 3; i++ {
		c.Inc()
	}
	if c.Load() != 3 {
		t.Fatalf("expected 3, got %d", c.Load())
	}
}
