// Package utils holds small helpers shared by the test suites.
package utils

import (
	"runtime"
	"testing"
	"time"
)

// GoroutineLeakDetector fails a test when goroutines outlive it. The endpoint
// spawns short-lived goroutines per inbound request and per cancellation
// notice; those are expected to drain, so Check polls until the count falls
// back to the baseline instead of sampling once and guessing.
type GoroutineLeakDetector struct {
	t             *testing.T
	baseline      int
	allowedGrowth int
	settleDelay   time.Duration
	deadline      time.Duration
}

// NewGoroutineLeakDetector creates a detector for the given test.
func NewGoroutineLeakDetector(t *testing.T) *GoroutineLeakDetector {
	return &GoroutineLeakDetector{
		t:           t,
		settleDelay: 100 * time.Millisecond,
		deadline:    2 * time.Second,
	}
}

// SetAllowedGrowth permits n goroutines to remain beyond the baseline, for
// tests that intentionally leave a long-lived worker behind.
func (d *GoroutineLeakDetector) SetAllowedGrowth(n int) *GoroutineLeakDetector {
	d.allowedGrowth = n
	return d
}

// SetSettleDelay adjusts how long Start waits before taking the baseline.
func (d *GoroutineLeakDetector) SetSettleDelay(delay time.Duration) *GoroutineLeakDetector {
	d.settleDelay = delay
	return d
}

// SetDeadline adjusts how long Check waits for stragglers to exit.
func (d *GoroutineLeakDetector) SetDeadline(deadline time.Duration) *GoroutineLeakDetector {
	d.deadline = deadline
	return d
}

// Start records the goroutine baseline. Call it before the code under test
// spawns anything.
func (d *GoroutineLeakDetector) Start() {
	time.Sleep(d.settleDelay)
	d.baseline = runtime.NumGoroutine()
}

// Check waits for the goroutine count to return to the baseline (plus any
// allowed growth) and fails the test with a full stack dump if it never does.
func (d *GoroutineLeakDetector) Check() {
	limit := d.baseline + d.allowedGrowth
	waitUntil := time.Now().Add(d.deadline)

	current := runtime.NumGoroutine()
	for current > limit && time.Now().Before(waitUntil) {
		time.Sleep(20 * time.Millisecond)
		current = runtime.NumGoroutine()
	}

	if current > limit {
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		d.t.Errorf("goroutine leak: baseline %d, still running %d (allowed growth %d)\n%s",
			d.baseline, current, d.allowedGrowth, buf[:n])
	}
}
