package relay

import "sync"

// FakeOutput is a test double that records every Set call.
type FakeOutput struct {
	mu sync.Mutex

	// States holds every value passed to Set, in order.
	States []bool

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, will be returned by Set().
	SetError error
}

func (f *FakeOutput) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, on)
	return nil
}

func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Last returns the most recent value passed to Set, or false if none.
func (f *FakeOutput) Last() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.States) == 0 {
		return false
	}
	return f.States[len(f.States)-1]
}

// Count returns the number of Set calls so far.
func (f *FakeOutput) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.States)
}
