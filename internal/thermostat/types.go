package thermostat

import (
	"fmt"
	"time"
)

// Mode is an integer enum.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeOff
	ModeHeat
	ModeCool
	ModeAuto
)

func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeHeat || m == ModeCool || m == ModeAuto
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHeat:
		return "heat"
	case ModeCool:
		return "cool"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseMode is optional but handy for env vars / CLI.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "off":
		return ModeOff, nil
	case "heat":
		return ModeHeat, nil
	case "cool":
		return ModeCool, nil
	case "auto":
		return ModeAuto, nil
	default:
		return ModeUnknown, fmt.Errorf("invalid mode: %q", s)
	}
}

// Reading is one calibrated temperature sample.
type Reading struct {
	Value float64
	Time  time.Time
}

// Snapshot is a point-in-time copy of the controller state. Absent values
// (no setpoint configured yet, no reading received yet) are nil.
type Snapshot struct {
	Mode         Mode
	Setpoint     *float64
	LowSetpoint  *float64
	HighSetpoint *float64
	Temperature  *float64
	Band         float64
	Calibration  float64
	Heating      bool
	Cooling      bool
}
