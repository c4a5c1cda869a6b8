package update

import "sync"

// ProgressTracker turns discrete unit events into a percentage.
// The denominator is fixed by the first SetTotal call after a Reset, because
// the number of files in a staged tree is only known once the walk begins.
type ProgressTracker struct {
	mu       sync.Mutex
	moved    int64
	total    int64
	totalSet bool
	onChange func(percent int)
}

// NewProgressTracker creates a tracker that calls onChange after every
// recorded unit. onChange may be nil.
func NewProgressTracker(onChange func(percent int)) *ProgressTracker {
	return &ProgressTracker{onChange: onChange}
}

// Reset zeroes the counters and forgets the total.
func (p *ProgressTracker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moved = 0
	p.total = 0
	p.totalSet = false
}

// SetTotal sets the denominator. Only the first call after Reset has effect.
func (p *ProgressTracker) SetTotal(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.totalSet {
		return
	}
	if n < 0 {
		n = 0
	}
	p.total = n
	p.totalSet = true
}

// RecordUnit counts one moved unit and notifies the listener.
func (p *ProgressTracker) RecordUnit() {
	p.RecordUnits(1)
}

// RecordUnits counts n moved units and notifies the listener once.
func (p *ProgressTracker) RecordUnits(n int64) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.moved += n
	percent := p.percentageLocked()
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange(percent)
	}
}

// Moved returns the number of units recorded since the last Reset.
func (p *ProgressTracker) Moved() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.moved
}

// Percentage returns floor(moved/total*100) clamped to [0,100].
// A zero total counts as one.
func (p *ProgressTracker) Percentage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percentageLocked()
}

func (p *ProgressTracker) percentageLocked() int {
	total := p.total
	if total <= 0 {
		total = 1
	}
	// moved*100 can overflow for byte counts near the int64 limit.
	var percent int64
	if p.moved > (1<<62)/100 {
		percent = p.moved / total * 100
	} else {
		percent = p.moved * 100 / total
	}
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	}
	return int(percent)
}
