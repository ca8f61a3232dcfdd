// Package timeutil abstracts the clock behind every freshness window in the
// controller so tests can step time with MockClock.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the subset of package time the controller depends on.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	// After delivers the clock time once d has elapsed.
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// MockClock only moves when told to. Advance fires every After channel and
// ticker whose deadline has passed.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	alarms []*alarm
}

// alarm is a pending After (period zero) or a ticker.
type alarm struct {
	next    time.Time
	period  time.Duration
	ch      chan time.Time
	stopped bool
}

// NewMockClock starts a MockClock at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Set jumps to t without firing anything.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d. Each due alarm fires once; a ticker
// that missed several periods delivers a single tick, like time.Ticker.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*alarm
	kept := c.alarms[:0]
	for _, a := range c.alarms {
		if a.stopped {
			continue
		}
		if !now.Before(a.next) {
			due = append(due, a)
			if a.period == 0 {
				continue
			}
			a.next = now.Add(a.period)
		}
		kept = append(kept, a)
	}
	c.alarms = kept
	c.mu.Unlock()

	for _, a := range due {
		select {
		case a.ch <- now:
		default:
		}
	}
}

func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.alarms = append(c.alarms, &alarm{next: c.now.Add(d), ch: ch})
	return ch
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := &alarm{next: c.now.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.alarms = append(c.alarms, a)
	return &mockTicker{clock: c, alarm: a}
}

// Pending reports how many After channels and tickers are still armed.
func (c *MockClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, a := range c.alarms {
		if !a.stopped {
			n++
		}
	}
	return n
}

type mockTicker struct {
	clock *MockClock
	alarm *alarm
}

func (t *mockTicker) C() <-chan time.Time { return t.alarm.ch }

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.alarm.stopped = true
}
