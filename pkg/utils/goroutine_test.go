package utils

import (
	"testing"
	"time"
)

func TestGoroutineLeakDetectorNoLeak(t *testing.T) {
	detector := NewGoroutineLeakDetector(t).SetSettleDelay(10 * time.Millisecond)
	detector.Start()

	done := make(chan struct{})
	go func() {
		close(done)
	}()
	<-done

	detector.Check()
}

func TestGoroutineLeakDetectorWaitsForStragglers(t *testing.T) {
	detector := NewGoroutineLeakDetector(t).SetSettleDelay(10 * time.Millisecond)
	detector.Start()

	// Exits well within the check deadline, but after Check begins polling.
	go func() {
		time.Sleep(100 * time.Millisecond)
	}()

	detector.Check()
}

func TestGoroutineLeakDetectorAllowedGrowth(t *testing.T) {
	detector := NewGoroutineLeakDetector(t).
		SetSettleDelay(10 * time.Millisecond).
		SetDeadline(200 * time.Millisecond).
		SetAllowedGrowth(1)
	detector.Start()

	release := make(chan struct{})
	defer close(release)

	// One goroutine deliberately outlives the check.
	go func() {
		<-release
	}()

	detector.Check()
}
