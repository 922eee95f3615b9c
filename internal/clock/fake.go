package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests. Time stands still until
// Advance is called; pending AfterFunc callbacks whose deadlines fall
// within the advance fire synchronously, in deadline order.
//
// Safe for concurrent use. Do not call Advance from inside an
// AfterFunc callback.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	changed *sync.Cond
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	callback func()
	channel  chan time.Time
	stopped  bool
	fired    bool
}

// NewFake returns a Fake initialized to the given time.
func NewFake(initial time.Time) *Fake {
	f := &Fake{current: initial}
	f.changed = sync.NewCond(&f.mu)
	return f
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// AfterFunc registers fn to run when the clock advances past d from
// now. A non-positive d runs fn synchronously before returning.
func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		fn()
		return &Timer{stopFunc: func() bool { return false }}
	}

	f.mu.Lock()
	waiter := &fakeWaiter{
		deadline: f.current.Add(d),
		callback: fn,
	}
	f.waiters = append(f.waiters, waiter)
	f.changed.Broadcast()
	f.mu.Unlock()

	return &Timer{stopFunc: func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if waiter.stopped || waiter.fired {
			return false
		}
		waiter.stopped = true
		return true
	}}
}

// Sleep blocks the calling goroutine until the clock advances past d.
func (f *Fake) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}

	f.mu.Lock()
	waiter := &fakeWaiter{
		deadline: f.current.Add(d),
		channel:  make(chan time.Time, 1),
	}
	f.waiters = append(f.waiters, waiter)
	f.changed.Broadcast()
	f.mu.Unlock()

	<-waiter.channel
}

// Advance moves the clock forward by d, firing expired waiters in
// deadline order. Callbacks run in the calling goroutine.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	target := f.current
	f.mu.Unlock()

	for {
		expired := f.collectExpired(target)
		if len(expired) == 0 {
			return
		}

		sort.Slice(expired, func(i, j int) bool {
			return expired[i].deadline.Before(expired[j].deadline)
		})

		for _, waiter := range expired {
			if waiter.callback != nil {
				waiter.callback()
			} else {
				waiter.channel <- target
			}
		}
	}
}

func (f *Fake) collectExpired(target time.Time) []*fakeWaiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	var expired, remaining []*fakeWaiter
	for _, waiter := range f.waiters {
		if waiter.stopped {
			continue
		}
		if !waiter.deadline.After(target) {
			waiter.fired = true
			expired = append(expired, waiter)
		} else {
			remaining = append(remaining, waiter)
		}
	}
	f.waiters = remaining
	return expired
}

// WaitForTimers blocks until at least n waiters are pending. Closes
// the race between a goroutine registering a timer and the test
// advancing the clock.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pendingLocked() < n {
		f.changed.Wait()
	}
}

// PendingCount returns the number of pending waiters.
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingLocked()
}

func (f *Fake) pendingLocked() int {
	count := 0
	for _, waiter := range f.waiters {
		if !waiter.stopped {
			count++
		}
	}
	return count
}
