// Package idle tracks user activity and reports when the user goes idle.
package idle

import (
	"sync"
	"time"
)

const (
	DefaultTimeout  = 15 * time.Minute
	DefaultDebounce = 250 * time.Millisecond
)

// Detector flips to idle once no activity has been seen for the timeout.
// Activity within the debounce window of the previous one is coalesced.
type Detector struct {
	mu       sync.Mutex
	timeout  time.Duration
	debounce time.Duration
	last     time.Time
	idle     bool
}

// New creates a Detector that considers the user active as of now
func New(timeout, debounce time.Duration, now time.Time) *Detector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if debounce < 0 {
		debounce = 0
	}
	return &Detector{
		timeout:  timeout,
		debounce: debounce,
		last:     now,
	}
}

// Activity records user input. It reports true when the input ended an
// idle period.
func (d *Detector) Activity(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.idle {
		d.idle = false
		d.last = now
		return true
	}
	if now.Sub(d.last) >= d.debounce {
		d.last = now
	}
	return false
}

// Check reports true exactly once when the timeout has passed since the
// last recorded activity.
func (d *Detector) Check(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.idle || now.Sub(d.last) < d.timeout {
		return false
	}
	d.idle = true
	return true
}

// Idle reports whether the detector is currently idle
func (d *Detector) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// Remaining returns how long until the user goes idle, or zero if already idle
func (d *Detector) Remaining(now time.Time) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.idle {
		return 0
	}
	left := d.timeout - now.Sub(d.last)
	if left < 0 {
		return 0
	}
	return left
}
