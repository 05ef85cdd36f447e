package thermostat

import (
	"context"
	"testing"
	"time"
)

func TestSignalInitiallyDeasserted(t *testing.T) {
	s := newSignal()
	if s.Asserted() {
		t.Fatal("new signal should be deasserted")
	}
}

func TestSignalWaitReturnsImmediatelyWhenAsserted(t *testing.T) {
	s := newSignal()
	s.set()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait on asserted signal: %v", err)
	}
}

func TestSignalWaitReleasedOnAssertEdge(t *testing.T) {
	s := newSignal()

	released := make(chan error, 1)
	go func() {
		released <- s.Wait(context.Background())
	}()

	// The waiter must still be suspended before the edge.
	select {
	case err := <-released:
		t.Fatalf("waiter released before assert (err=%v)", err)
	case <-time.After(20 * time.Millisecond):
	}

	s.set()

	select {
	case err := <-released:
		if err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released on assert edge")
	}
}

func TestSignalReassertWakesNobody(t *testing.T) {
	s := newSignal()
	s.set()
	if s.set() {
		t.Fatal("re-assert of an asserted signal reported an edge")
	}
}

func TestSignalDeassertWakesNobody(t *testing.T) {
	s := newSignal()
	s.set()
	s.clear()

	released := make(chan error, 1)
	go func() {
		released <- s.Wait(context.Background())
	}()

	// clear again; the waiter must stay suspended
	s.clear()
	select {
	case <-released:
		t.Fatal("waiter released without an assert edge")
	case <-time.After(20 * time.Millisecond):
	}

	s.set()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("waiter not released after assert")
	}
}

func TestSignalWaitHonorsContext(t *testing.T) {
	s := newSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := s.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestSignalMultipleWaitersAllReleased(t *testing.T) {
	s := newSignal()

	const n = 4
	released := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_ = s.Wait(context.Background())
			released <- struct{}{}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	s.set()

	for i := 0; i < n; i++ {
		select {
		case <-released:
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d waiters released", i, n)
		}
	}
}
