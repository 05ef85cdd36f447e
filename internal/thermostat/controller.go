package thermostat

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// Hard limits, matching the physical plausibility of the hardware this core
// was written for. Setpoint and temperature bounds are configurable per
// controller inside these envelopes.
const (
	SetpointMin = 0.0
	SetpointMax = 100.0

	CalibrationMin = -5.0
	CalibrationMax = 5.0

	BandMax = 5.0

	DefaultHistoryLen    = 10
	DefaultHistoryWindow = time.Hour

	defaultTempMin = -100.0
	defaultTempMax = 200.0
)

// Params configures a Controller. Band is required; there is deliberately no
// default so an embedder cannot inherit a deadband it never chose.
type Params struct {
	// Band is the hysteresis band around each setpoint. Required, in (0, BandMax].
	Band float64

	// TempMin/TempMax bound plausible sensor readings. Zero values select
	// the package defaults.
	TempMin float64
	TempMax float64

	// HistoryLen is the number of readings retained; HistoryWindow bounds
	// RecentHistory and AvgTempChange. Zero values select the defaults.
	HistoryLen    int
	HistoryWindow time.Duration
}

func (p *Params) Validate() error {
	if math.IsNaN(p.Band) || p.Band <= 0 || p.Band > BandMax {
		return ErrInvalidBand
	}
	if p.TempMin != 0 || p.TempMax != 0 {
		if p.TempMin >= p.TempMax {
			return ErrInvalidBounds
		}
	}
	if p.HistoryLen < 0 {
		return ErrInvalidHistoryLen
	}
	if p.HistoryWindow < 0 {
		return ErrInvalidHistoryLen
	}
	return nil
}

func (p *Params) applyDefaults() {
	if p.TempMin == 0 && p.TempMax == 0 {
		p.TempMin = defaultTempMin
		p.TempMax = defaultTempMax
	}
	if p.HistoryLen == 0 {
		p.HistoryLen = DefaultHistoryLen
	}
	if p.HistoryWindow == 0 {
		p.HistoryWindow = DefaultHistoryWindow
	}
}

// Controller is a deadband on/off thermostat core. It owns the operating
// mode, setpoints and hysteresis band, remembers recent readings, and drives
// the heating and cooling output signals. Signal state changes only as a
// synchronous consequence of a mutator call.
type Controller struct {
	mu     sync.RWMutex
	params Params
	logger *slog.Logger
	now    func() time.Time

	mode        Mode
	setpoint    float64
	hasSetpoint bool
	low, high   float64
	hasRange    bool
	band        float64
	calibration float64

	readings []Reading

	heating *Signal
	cooling *Signal
}

// New returns a Controller in ModeOff with no setpoint and no reading.
func New(params Params, logger *slog.Logger) (*Controller, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		params:  params,
		logger:  logger,
		now:     time.Now,
		mode:    ModeOff,
		band:    params.Band,
		heating: newSignal(),
		cooling: newSignal(),
	}, nil
}

// Heating is the output signal an actuator observes to drive the heat relay.
func (c *Controller) Heating() *Signal { return c.heating }

// Cooling is the output signal an actuator observes to drive the cool relay.
func (c *Controller) Cooling() *Signal { return c.cooling }

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Mode:        c.mode,
		Band:        c.band,
		Calibration: c.calibration,
		Heating:     c.heating.Asserted(),
		Cooling:     c.cooling.Asserted(),
	}
	if c.hasSetpoint {
		v := c.setpoint
		s.Setpoint = &v
	}
	if c.hasRange {
		lo, hi := c.low, c.high
		s.LowSetpoint = &lo
		s.HighSetpoint = &hi
	}
	if len(c.readings) > 0 {
		v := c.readings[len(c.readings)-1].Value
		s.Temperature = &v
	}
	return s
}

// SetMode switches the operating mode. Any mode is reachable from any mode;
// the switch re-evaluates the signals immediately, so entering ModeOff
// deasserts both without waiting for a new reading.
func (c *Controller) SetMode(m Mode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	c.logger.Info("mode set", "mode", m.String())
	c.evaluate()
	return nil
}

// SetSetpoint sets the single target used by ModeHeat and ModeCool.
func (c *Controller) SetSetpoint(v float64) error {
	if err := c.validSetpoint(v); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setpoint = v
	c.hasSetpoint = true
	c.logger.Info("setpoint set", "setpoint", v)
	c.evaluate()
	return nil
}

// SetSetpoints sets the low/high pair used by ModeAuto. The pair is applied
// atomically: on any validation failure the previous pair is kept.
func (c *Controller) SetSetpoints(low, high float64) error {
	if err := c.validSetpoint(low); err != nil {
		return err
	}
	if err := c.validSetpoint(high); err != nil {
		return err
	}
	if low >= high {
		return ErrInvalidRange
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.low, c.high = low, high
	c.hasRange = true
	c.logger.Info("setpoint range set", "low", low, "high", high)
	c.evaluate()
	return nil
}

// SetTemp records a sensor reading (after calibration) and re-evaluates the
// signals. This is the primary driving entry point, expected on every poll.
func (c *Controller) SetTemp(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidValue
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v < c.params.TempMin || v > c.params.TempMax {
		return ErrInvalidValue
	}
	calibrated := v + c.calibration
	c.logger.Debug("temperature reading", "raw", v, "calibrated", calibrated)

	c.readings = append(c.readings, Reading{Value: calibrated, Time: c.now()})
	if len(c.readings) > c.params.HistoryLen {
		c.readings = c.readings[1:]
	}
	c.evaluate()
	return nil
}

// SetBand adjusts the hysteresis band at runtime, within (0, BandMax].
func (c *Controller) SetBand(v float64) error {
	if math.IsNaN(v) || v <= 0 || v > BandMax {
		return ErrInvalidBand
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.band = v
	c.logger.Info("band set", "band", v)
	c.evaluate()
	return nil
}

// SetCalibration sets the sensor calibration offset, applied to subsequent
// readings only.
func (c *Controller) SetCalibration(v float64) error {
	if math.IsNaN(v) || v < CalibrationMin || v > CalibrationMax {
		return ErrInvalidValue
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calibration = v
	c.logger.Info("calibration set", "calibration", v)
	return nil
}

func (c *Controller) validSetpoint(v float64) error {
	if math.IsNaN(v) || v < SetpointMin || v > SetpointMax {
		return ErrInvalidValue
	}
	return nil
}

// evaluate recomputes both output signals from the current state. Callers
// must hold c.mu. Mutual exclusion holds by construction: the assert
// thresholds of the two signals can never be satisfied by the same reading.
func (c *Controller) evaluate() {
	heat := c.shouldHeat()
	cool := c.shouldCool()

	c.apply(c.heating, heat, "heating")
	c.apply(c.cooling, cool, "cooling")
}

func (c *Controller) apply(s *Signal, want bool, name string) {
	if want {
		if s.set() {
			c.logger.Info(name + " on")
		}
		return
	}
	if s.clear() {
		c.logger.Info(name + " off")
	}
}

func (c *Controller) shouldHeat() bool {
	t, ok := c.lastTemp()
	if !ok {
		return false
	}
	switch c.mode {
	case ModeHeat:
		return c.hasSetpoint && c.heatDemand(t, c.setpoint)
	case ModeAuto:
		return c.hasRange && c.heatDemand(t, c.low)
	default:
		return false
	}
}

func (c *Controller) shouldCool() bool {
	t, ok := c.lastTemp()
	if !ok {
		return false
	}
	switch c.mode {
	case ModeCool:
		return c.hasSetpoint && c.coolDemand(t, c.setpoint)
	case ModeAuto:
		return c.hasRange && c.coolDemand(t, c.high)
	default:
		return false
	}
}

// heatDemand applies the hysteresis rule against a setpoint: turn on at or
// below setpoint-band, stay on until temperature reaches setpoint+band.
func (c *Controller) heatDemand(t, sp float64) bool {
	if c.heating.Asserted() {
		return t < sp+c.band
	}
	return t <= sp-c.band
}

// coolDemand is the mirror image: turn on at or above setpoint+band, stay on
// until temperature drops to setpoint-band.
func (c *Controller) coolDemand(t, sp float64) bool {
	if c.cooling.Asserted() {
		return t > sp-c.band
	}
	return t >= sp+c.band
}

func (c *Controller) lastTemp() (float64, bool) {
	if len(c.readings) == 0 {
		return 0, false
	}
	return c.readings[len(c.readings)-1].Value, true
}
