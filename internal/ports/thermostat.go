package ports

import "github.com/Agrid-Dev/thermoctl/internal/thermostat"

// ThermostatService is the control-plane port used by controllers (HTTP/MQTT/etc).
type ThermostatService interface {
	Snapshot() thermostat.Snapshot
	History() []thermostat.Reading
	SetMode(thermostat.Mode) error
	SetSetpoint(float64) error
	SetSetpoints(low, high float64) error
	SetTemp(float64) error
	SetBand(float64) error
	SetCalibration(float64) error
}
