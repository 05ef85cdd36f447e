package thermostat

import (
	"context"
	"math"
	"testing"
	"time"
)

func assertError(t *testing.T, err error, expected error) {
	t.Helper()
	if err != expected {
		t.Fatalf("expected %v, got %v", expected, err)
	}
}

func assertEqual[T comparable](t *testing.T, name string, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: got %v, want %v", name, got, want)
	}
}

func assertSignals(t *testing.T, c *Controller, wantHeating, wantCooling bool) {
	t.Helper()
	if got := c.Heating().Asserted(); got != wantHeating {
		t.Fatalf("heating: got %v, want %v", got, wantHeating)
	}
	if got := c.Cooling().Asserted(); got != wantCooling {
		t.Fatalf("cooling: got %v, want %v", got, wantCooling)
	}
}

func newTestParams(opts ...func(*Params)) Params {
	p := Params{Band: 1}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func newTestController(t *testing.T, opts ...func(*Params)) *Controller {
	t.Helper()
	c, err := New(newTestParams(opts...), nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func setTemp(t *testing.T, c *Controller, v float64) {
	t.Helper()
	if err := c.SetTemp(v); err != nil {
		t.Fatalf("SetTemp(%v): %v", v, err)
	}
}

func TestNewValidationBandRequired(t *testing.T) {
	_, err := New(Params{}, nil)
	assertError(t, err, ErrInvalidBand)
}

func TestNewValidationBandTooLarge(t *testing.T) {
	_, err := New(Params{Band: BandMax + 0.1}, nil)
	assertError(t, err, ErrInvalidBand)
}

func TestNewValidationBandNaN(t *testing.T) {
	_, err := New(Params{Band: math.NaN()}, nil)
	assertError(t, err, ErrInvalidBand)
}

func TestNewValidationInvalidBounds(t *testing.T) {
	_, err := New(Params{Band: 1, TempMin: 50, TempMax: -50}, nil)
	assertError(t, err, ErrInvalidBounds)
}

func TestNewValidationNegativeHistoryLen(t *testing.T) {
	_, err := New(Params{Band: 1, HistoryLen: -1}, nil)
	assertError(t, err, ErrInvalidHistoryLen)
}

func TestNewInitialState(t *testing.T) {
	c := newTestController(t)
	s := c.Snapshot()

	assertEqual(t, "mode", s.Mode, ModeOff)
	if s.Setpoint != nil || s.LowSetpoint != nil || s.HighSetpoint != nil {
		t.Fatalf("expected no setpoints, got %+v", s)
	}
	if s.Temperature != nil {
		t.Fatalf("expected no temperature, got %v", *s.Temperature)
	}
	assertSignals(t, c, false, false)
}

func TestSetModeInvalid(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(Mode(999)), ErrInvalidMode)
	assertError(t, c.SetMode(ModeUnknown), ErrInvalidMode)
}

func TestSetSetpointBounds(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetSetpoint(SetpointMin-1), ErrInvalidValue)
	assertError(t, c.SetSetpoint(SetpointMax+1), ErrInvalidValue)
	assertError(t, c.SetSetpoint(math.NaN()), ErrInvalidValue)
	assertError(t, c.SetSetpoint(SetpointMin), nil)
	assertError(t, c.SetSetpoint(SetpointMax), nil)
}

func TestSetSetpointsInvalidRange(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetSetpoints(22, 22), ErrInvalidRange)
	assertError(t, c.SetSetpoints(25, 20), ErrInvalidRange)
}

func TestSetSetpointsFailureKeepsPriorState(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeAuto), nil)
	assertError(t, c.SetSetpoints(65, 75), nil)
	setTemp(t, c, 60)
	assertSignals(t, c, true, false)

	assertError(t, c.SetSetpoints(80, 70), ErrInvalidRange)

	s := c.Snapshot()
	assertEqual(t, "low", *s.LowSetpoint, 65.0)
	assertEqual(t, "high", *s.HighSetpoint, 75.0)
	assertSignals(t, c, true, false)
}

func TestSetTempInvalidValues(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetTemp(math.NaN()), ErrInvalidValue)
	assertError(t, c.SetTemp(math.Inf(1)), ErrInvalidValue)
	assertError(t, c.SetTemp(math.Inf(-1)), ErrInvalidValue)
	assertError(t, c.SetTemp(-1000), ErrInvalidValue)
	assertError(t, c.SetTemp(1000), ErrInvalidValue)
}

func TestSetTempCustomBounds(t *testing.T) {
	c := newTestController(t, func(p *Params) {
		p.TempMin = -10
		p.TempMax = 50
	})
	assertError(t, c.SetTemp(-10.5), ErrInvalidValue)
	assertError(t, c.SetTemp(50.5), ErrInvalidValue)
	assertError(t, c.SetTemp(25), nil)
}

func TestNoDecisionBeforeFirstReading(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeHeat), nil)
	assertError(t, c.SetSetpoint(20), nil)
	assertSignals(t, c, false, false)
}

func TestHeatHysteresisScenario(t *testing.T) {
	// Mode HEAT, setpoint 65, band 1. Turn-on at 64, turn-off at 66.
	c := newTestController(t)
	assertError(t, c.SetMode(ModeHeat), nil)
	assertError(t, c.SetSetpoint(65), nil)

	setTemp(t, c, 60)
	assertSignals(t, c, true, false)

	setTemp(t, c, 64)
	assertSignals(t, c, true, false)

	setTemp(t, c, 66)
	assertSignals(t, c, false, false)

	// Below setpoint but above the turn-on threshold: stays off.
	setTemp(t, c, 65)
	assertSignals(t, c, false, false)
}

func TestCoolHysteresisScenario(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeCool), nil)
	assertError(t, c.SetSetpoint(65), nil)

	setTemp(t, c, 70)
	assertSignals(t, c, false, true)

	setTemp(t, c, 65)
	assertSignals(t, c, false, true)

	setTemp(t, c, 64)
	assertSignals(t, c, false, false)

	setTemp(t, c, 65)
	assertSignals(t, c, false, false)
}

func TestAutoScenario(t *testing.T) {
	// Mode AUTO, low=65 high=75, band 1.
	c := newTestController(t)
	assertError(t, c.SetMode(ModeAuto), nil)
	assertError(t, c.SetSetpoints(65, 75), nil)

	setTemp(t, c, 80)
	assertSignals(t, c, false, true)

	setTemp(t, c, 64)
	assertSignals(t, c, true, false)
}

func TestAutoMutualExclusionSweep(t *testing.T) {
	c := newTestController(t, func(p *Params) { p.Band = 3 })
	assertError(t, c.SetMode(ModeAuto), nil)
	assertError(t, c.SetSetpoints(20, 21), nil)

	// Sweep up and back down across both deadbands; the two signals must
	// never assert together even with a band wider than the range gap.
	for temp := 10.0; temp <= 30.0; temp += 0.5 {
		setTemp(t, c, temp)
		if c.Heating().Asserted() && c.Cooling().Asserted() {
			t.Fatalf("heating and cooling both asserted at %v", temp)
		}
	}
	for temp := 30.0; temp >= 10.0; temp -= 0.5 {
		setTemp(t, c, temp)
		if c.Heating().Asserted() && c.Cooling().Asserted() {
			t.Fatalf("heating and cooling both asserted at %v", temp)
		}
	}
}

func TestOffDeassertsBothImmediately(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeHeat), nil)
	assertError(t, c.SetSetpoint(20), nil)
	setTemp(t, c, 10)
	assertSignals(t, c, true, false)

	assertError(t, c.SetMode(ModeOff), nil)
	assertSignals(t, c, false, false)
}

func TestModeSwitchReevaluates(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeHeat), nil)
	assertError(t, c.SetSetpoint(20), nil)
	setTemp(t, c, 10)
	assertSignals(t, c, true, false)

	// Same setpoint, cooling rules: 10 is far below, nothing should run.
	assertError(t, c.SetMode(ModeCool), nil)
	assertSignals(t, c, false, false)
}

func TestSetpointChangeReevaluatesAgainstLastReading(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeHeat), nil)
	setTemp(t, c, 60)
	assertSignals(t, c, false, false)

	assertError(t, c.SetSetpoint(65), nil)
	assertSignals(t, c, true, false)
}

func TestBandChangeReevaluates(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeHeat), nil)
	assertError(t, c.SetSetpoint(65), nil)
	setTemp(t, c, 64.5)
	assertSignals(t, c, false, false)

	// Narrower band moves the turn-on threshold up to the last reading.
	assertError(t, c.SetBand(0.5), nil)
	assertSignals(t, c, true, false)
}

func TestSetBandInvalid(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetBand(0), ErrInvalidBand)
	assertError(t, c.SetBand(-1), ErrInvalidBand)
	assertError(t, c.SetBand(BandMax+1), ErrInvalidBand)
	assertEqual(t, "band", c.Snapshot().Band, 1.0)
}

func TestCalibrationApplied(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetCalibration(2), nil)
	setTemp(t, c, 20)
	assertEqual(t, "temperature", *c.Snapshot().Temperature, 22.0)
}

func TestSetCalibrationBounds(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetCalibration(CalibrationMax+1), ErrInvalidValue)
	assertError(t, c.SetCalibration(CalibrationMin-1), ErrInvalidValue)
	assertError(t, c.SetCalibration(CalibrationMax), nil)
}

func TestHeatingWaiterReleasedOnFirstAssert(t *testing.T) {
	c := newTestController(t)
	assertError(t, c.SetMode(ModeHeat), nil)
	assertError(t, c.SetSetpoint(65), nil)

	released := make(chan struct{})
	go func() {
		_ = c.Heating().Wait(context.Background())
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("waiter released before heating asserted")
	case <-time.After(20 * time.Millisecond):
	}

	setTemp(t, c, 60)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("waiter not released on heating assert")
	}

	// Further updates that keep heating asserted are edge-free; a fresh
	// wait must complete immediately off the level.
	setTemp(t, c, 61)
	setTemp(t, c, 62)
	assertSignals(t, c, true, false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Heating().Wait(ctx); err != nil {
		t.Fatalf("Wait on asserted heating: %v", err)
	}
}
