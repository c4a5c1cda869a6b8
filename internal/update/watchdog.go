package update

import (
	"sync"
	"time"
)

// watchdog fires onStall when no progress has been recorded for a full
// window. Progress only moves a timestamp forward; the single scheduled
// check re-arms itself for whatever is left of the window, so a transfer
// that keeps ticking never stalls no matter how long it runs.
type watchdog struct {
	window  time.Duration
	onStall func()

	mu    sync.Mutex
	armed bool
	gen   uint64 // bumped on every arm/disarm; stale checks compare against it
	last  time.Time
	timer *time.Timer
}

func newWatchdog(window time.Duration, onStall func()) *watchdog {
	return &watchdog{window: window, onStall: onStall}
}

// arm starts a fresh window, discarding any previous one.
func (w *watchdog) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	w.gen++
	w.armed = true
	w.last = time.Now()
	w.scheduleLocked(w.gen, w.window)
}

// touch records progress.
func (w *watchdog) touch() {
	w.mu.Lock()
	if w.armed {
		w.last = time.Now()
	}
	w.mu.Unlock()
}

// disarm stops the watchdog. A check already running is ignored.
func (w *watchdog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	w.gen++
	w.armed = false
}

func (w *watchdog) isArmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

func (w *watchdog) stopLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *watchdog) scheduleLocked(gen uint64, d time.Duration) {
	w.timer = time.AfterFunc(d, func() { w.check(gen) })
}

func (w *watchdog) check(gen uint64) {
	w.mu.Lock()
	if !w.armed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	idle := time.Since(w.last)
	if idle < w.window {
		w.scheduleLocked(gen, w.window-idle)
		w.mu.Unlock()
		return
	}
	w.armed = false
	w.gen++
	w.timer = nil
	w.mu.Unlock()

	w.onStall()
}
