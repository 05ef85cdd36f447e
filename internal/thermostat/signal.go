package thermostat

import (
	"context"
	"sync"
)

// Signal is a level-triggered boolean condition. Asserted reports the current
// level; Wait suspends the caller until the signal transitions from deasserted
// to asserted. A Wait on an already-asserted signal returns immediately, and
// re-asserting an asserted signal wakes nobody. Deassertion never wakes
// waiters; callers reacting to the falling edge must poll.
type Signal struct {
	mu       sync.Mutex
	asserted bool
	ch       chan struct{} // closed while asserted
}

func newSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Asserted returns the current level without blocking.
func (s *Signal) Asserted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asserted
}

// Wait blocks until the signal is asserted or ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.asserted {
		s.mu.Unlock()
		return nil
	}
	ch := s.ch
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// set asserts the signal. Returns true on the deassert->assert edge.
func (s *Signal) set() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asserted {
		return false
	}
	s.asserted = true
	close(s.ch)
	return true
}

// clear deasserts the signal. Returns true on the assert->deassert edge.
func (s *Signal) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.asserted {
		return false
	}
	s.asserted = false
	s.ch = make(chan struct{})
	return true
}
