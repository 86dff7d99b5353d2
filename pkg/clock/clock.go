// Package clock abstracts wall-clock time so that coordination timestamps,
// agent latencies and health sampling can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used across repaircoord
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
	Since(t time.Time) time.Duration
}

// Ticker delivers ticks on C until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
	Reset(d time.Duration)
}

// RealClock delegates to the time package
type RealClock struct{}

// NewRealClock returns the production clock
func NewRealClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (c *RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}

func (t *realTicker) Reset(d time.Duration) {
	t.ticker.Reset(d)
}

// FakeClock is a manually advanced clock. Time only moves on Advance or Set.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []fakeTimer
	tickers []*fakeTicker
}

type fakeTimer struct {
	ch       chan time.Time
	deadline time.Time
}

// NewFakeClock creates a fake clock pinned at now
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}

	c.timers = append(c.timers, fakeTimer{ch: ch, deadline: c.now.Add(d)})
	return ch
}

func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{
		clock:    c,
		interval: d,
		ch:       make(chan time.Time, 1),
		next:     c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the clock forward and fires any due timers and tickers
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	c.fire()
}

// Set jumps the clock to t
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()

	c.fire()
}

// TickerCount reports how many tickers have been created, which lets tests
// wait for a background loop to be listening before advancing time.
func (c *FakeClock) TickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *FakeClock) fire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	pending := c.timers[:0]
	for _, tm := range c.timers {
		if now.Before(tm.deadline) {
			pending = append(pending, tm)
			continue
		}
		select {
		case tm.ch <- now:
		default:
		}
	}
	c.timers = pending

	for _, t := range c.tickers {
		t.mu.Lock()
		for !t.stopped && t.interval > 0 && !now.Before(t.next) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.interval)
		}
		t.mu.Unlock()
	}
}

type fakeTicker struct {
	clock    *FakeClock
	interval time.Duration
	ch       chan time.Time
	next     time.Time
	stopped  bool
	mu       sync.Mutex
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) Reset(d time.Duration) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
	t.next = now.Add(d)
	t.stopped = false
}
