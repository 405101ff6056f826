package testutil

import (
	"sync"
	"time"

	"github.com/trezcool/masomo-tracking/core/tracking"
)

// ManualClock is a tracking.Clock that only moves when told to.
// Timers fire synchronously, in order, from Advance.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	every time.Duration
	next  time.Time
	fn    func()
}

var _ tracking.Clock = (*ManualClock)(nil)

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start.UTC(), timers: make(map[int]*manualTimer)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Every(d time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.timers[id] = &manualTimer{every: d, next: c.now.Add(d), fn: fn}
	return func() {
		c.mu.Lock()
		delete(c.timers, id)
		c.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing every timer due on the way.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *manualTimer
		for _, tm := range c.timers {
			if !tm.next.After(target) && (due == nil || tm.next.Before(due.next)) {
				due = tm
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = due.next
		due.next = due.next.Add(due.every)
		fn := due.fn
		c.mu.Unlock()

		fn()
	}
}

// Timers returns the number of running timers.
func (c *ManualClock) Timers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
