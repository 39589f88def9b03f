/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buttons

import (
	"sync"
	"time"
)

// Debouncer rejects a press repeated within interval of the last accepted
// press with the same key and delta.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[Press]time.Time
	now      func() time.Time
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		last:     make(map[Press]time.Time),
		now:      time.Now,
	}
}

func (d *Debouncer) Allow(p Press) bool {
	if d.interval <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.last[p]; ok && now.Sub(last) < d.interval {
		return false
	}
	d.last[p] = now

	return true
}
