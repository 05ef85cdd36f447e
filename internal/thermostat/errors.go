package thermostat

import "errors"

var (
	ErrInvalidMode       = errors.New("invalid mode")
	ErrInvalidRange      = errors.New("low setpoint must be strictly less than high setpoint")
	ErrInvalidValue      = errors.New("value out of range or not a number")
	ErrInvalidBand       = errors.New("hysteresis band out of range")
	ErrInvalidBounds     = errors.New("invalid min/max bounds")
	ErrInvalidHistoryLen = errors.New("history length must be a positive integer")
)
