// Package sem provides the counting semaphore used to hand events from
// interrupt-level producers to application threads.
package sem

import (
	"sync"
	"time"
)

// Forever requests an indefinite wait.
const Forever time.Duration = 0

// Semaphore is a counting semaphore. Signal never blocks and may be
// called from interrupt-level goroutines; Wait suspends the calling
// goroutine while the count is zero.
type Semaphore struct {
	mu    sync.Mutex
	count int
	wake  chan struct{}
}

// New creates a semaphore with an initial count.
func New(initial int) *Semaphore {
	if initial < 0 {
		panic("sem: negative initial count")
	}
	return &Semaphore{
		count: initial,
		wake:  make(chan struct{}, 1),
	}
}

// Signal increments the count and wakes one waiter if any.
func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.notify()
}

// Wait decrements the count, suspending the caller while it is zero.
// A timeout of Forever (or any non-positive duration) blocks until
// signalled; otherwise ErrTimeout is returned once the timeout elapses.
func (s *Semaphore) Wait(timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		if s.take() {
			return nil
		}
		select {
		case <-s.wake:
		case <-expired:
			return ErrTimeout
		}
	}
}

// Count returns the current count.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Semaphore) take() bool {
	s.mu.Lock()
	ok := s.count > 0
	var remaining int
	if ok {
		s.count--
		remaining = s.count
	}
	s.mu.Unlock()
	if ok && remaining > 0 {
		// Pass the wakeup on so a second waiter is not stranded
		// when two signals raced for the single wake token.
		s.notify()
	}
	return ok
}

func (s *Semaphore) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// WaitForever blocks on s with no timeout. Any failure of the wait
// means the channel accounting is broken and halts the program.
func WaitForever(s *Semaphore) {
	if err := s.Wait(Forever); err != nil {
		panic("sem: wait without timeout failed: " + err.Error())
	}
}
