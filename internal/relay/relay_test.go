package relay

import (
	"context"
	"testing"
	"time"

	"github.com/Agrid-Dev/thermoctl/internal/thermostat"
)

func newHeatingController(t *testing.T) *thermostat.Controller {
	t.Helper()
	c, err := thermostat.New(thermostat.Params{Band: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetMode(thermostat.ModeHeat); err != nil {
		t.Fatal(err)
	}
	if err := c.SetSetpoint(65); err != nil {
		t.Fatal(err)
	}
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDriverFollowsSignal(t *testing.T) {
	c := newHeatingController(t)
	out := &FakeOutput{}
	d := NewDriver("heating", c.Heating(), out, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Nothing happens before the signal asserts.
	time.Sleep(30 * time.Millisecond)
	if out.Count() != 0 {
		t.Fatalf("expected no Set calls before assert, got %d", out.Count())
	}

	if err := c.SetTemp(60); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "line energized", func() bool { return out.Last() })

	if err := c.SetTemp(70); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "line released", func() bool { return out.Count() >= 2 && !out.Last() })

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("driver did not stop on cancel")
	}
}

func TestDriverReleasesLineOnExit(t *testing.T) {
	c := newHeatingController(t)
	out := &FakeOutput{}
	d := NewDriver("heating", c.Heating(), out, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	if err := c.SetTemp(60); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "line energized", func() bool { return out.Last() })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("driver did not stop on cancel")
	}
	if out.Last() {
		t.Fatal("line still energized after Run returned")
	}
}

func TestDriverRepeatedCycles(t *testing.T) {
	c := newHeatingController(t)
	out := &FakeOutput{}
	d := NewDriver("heating", c.Heating(), out, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	for i := 0; i < 3; i++ {
		if err := c.SetTemp(60); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "energized", func() bool { return out.Last() })

		if err := c.SetTemp(70); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "released", func() bool { return !out.Last() })
	}
}

func TestNewDriverDefaultsPoll(t *testing.T) {
	c := newHeatingController(t)
	d := NewDriver("heating", c.Heating(), &FakeOutput{}, 0, nil)
	if d.poll != 250*time.Millisecond {
		t.Fatalf("expected default poll interval, got %v", d.poll)
	}
}
