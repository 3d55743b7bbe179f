package syncclient

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of values into one call carrying the latest
// value. Every Trigger cancels the pending timer and starts a new one.
type Debouncer struct {
	mu    sync.Mutex
	clock Clock
	wait  time.Duration
	fn    func(string)

	timer      Timer
	gen        uint64
	pending    string
	hasPending bool
	stopped    bool
}

func NewDebouncer(clock Clock, wait time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{clock: clock, wait: wait, fn: fn}
}

func (d *Debouncer) Trigger(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	d.hasPending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(gen) })
}

// fire ignores timers superseded after they were already running.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || !d.hasPending {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	d.fn(v)
}

// Flush delivers the pending value now, if there is one.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.stopped || !d.hasPending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	v := d.take()
	d.mu.Unlock()
	d.fn(v)
}

// Stop drops any pending value and disables further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.hasPending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// take must be called with d.mu held.
func (d *Debouncer) take() string {
	v := d.pending
	d.pending = ""
	d.hasPending = false
	d.timer = nil
	return v
}
