package update

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchdogFiresWithoutProgress(t *testing.T) {
	fired := make(chan struct{}, 1)
	w := newWatchdog(30*time.Millisecond, func() { fired <- struct{}{} })
	w.arm()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog did not fire")
	}
	if w.isArmed() {
		t.Error("watchdog should disarm itself after firing")
	}
}

func TestWatchdogTouchDefersStall(t *testing.T) {
	var fired atomic.Int32
	window := 60 * time.Millisecond
	w := newWatchdog(window, func() { fired.Add(1) })
	w.arm()

	// Keep ticking for several windows.
	deadline := time.Now().Add(4 * window)
	for time.Now().Before(deadline) {
		w.touch()
		time.Sleep(window / 6)
	}
	if got := fired.Load(); got != 0 {
		t.Fatalf("watchdog fired %d times while progress kept arriving", got)
	}

	time.Sleep(3 * window)
	if got := fired.Load(); got != 1 {
		t.Errorf("watchdog fired %d times after progress stopped, want 1", got)
	}
}

func TestWatchdogDisarm(t *testing.T) {
	var fired atomic.Int32
	w := newWatchdog(20*time.Millisecond, func() { fired.Add(1) })
	w.arm()
	w.disarm()

	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("disarmed watchdog fired %d times", got)
	}

	// touch on a disarmed watchdog does nothing
	w.touch()
	if w.isArmed() {
		t.Error("touch should not arm the watchdog")
	}
}

func TestWatchdogRearmDiscardsOldWindow(t *testing.T) {
	var fired atomic.Int32
	w := newWatchdog(50*time.Millisecond, func() { fired.Add(1) })
	w.arm()
	time.Sleep(30 * time.Millisecond)
	w.arm()
	time.Sleep(30 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("first window should have been discarded, fired %d", got)
	}
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}
