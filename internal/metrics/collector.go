// Package metrics exposes the thermostat state as a Prometheus collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Agrid-Dev/thermoctl/internal/ports"
)

const namespace = "thermoctl"

// ThermostatCollector implements prometheus.Collector over the thermostat
// service snapshot. Metrics for values that are not set yet (no setpoint, no
// reading) are simply not emitted for that scrape.
type ThermostatCollector struct {
	svc ports.ThermostatService

	mode         *prometheus.Desc
	setpoint     *prometheus.Desc
	lowSetpoint  *prometheus.Desc
	highSetpoint *prometheus.Desc
	temperature  *prometheus.Desc
	band         *prometheus.Desc
	calibration  *prometheus.Desc
	heating      *prometheus.Desc
	cooling      *prometheus.Desc
}

func NewThermostatCollector(svc ports.ThermostatService, deviceID string) *ThermostatCollector {
	labels := prometheus.Labels{"device_id": deviceID}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(namespace+"_"+name, help, nil, labels)
	}
	return &ThermostatCollector{
		svc:          svc,
		mode:         desc("mode", "Operating mode (1=off 2=heat 3=cool 4=auto)."),
		setpoint:     desc("temperature_setpoint", "Single target temperature for heat/cool modes."),
		lowSetpoint:  desc("temperature_setpoint_low", "Low setpoint for auto mode."),
		highSetpoint: desc("temperature_setpoint_high", "High setpoint for auto mode."),
		temperature:  desc("temperature", "Last calibrated temperature reading."),
		band:         desc("band", "Hysteresis band around each setpoint."),
		calibration:  desc("calibration", "Sensor calibration offset."),
		heating:      desc("heating", "1 while the heating signal is asserted."),
		cooling:      desc("cooling", "1 while the cooling signal is asserted."),
	}
}

func (c *ThermostatCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.mode
	ch <- c.setpoint
	ch <- c.lowSetpoint
	ch <- c.highSetpoint
	ch <- c.temperature
	ch <- c.band
	ch <- c.calibration
	ch <- c.heating
	ch <- c.cooling
}

func (c *ThermostatCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.svc.Snapshot()

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	optGauge := func(d *prometheus.Desc, v *float64) {
		if v != nil {
			gauge(d, *v)
		}
	}

	gauge(c.mode, float64(s.Mode))
	optGauge(c.setpoint, s.Setpoint)
	optGauge(c.lowSetpoint, s.LowSetpoint)
	optGauge(c.highSetpoint, s.HighSetpoint)
	optGauge(c.temperature, s.Temperature)
	gauge(c.band, s.Band)
	gauge(c.calibration, s.Calibration)
	gauge(c.heating, boolToGauge(s.Heating))
	gauge(c.cooling, boolToGauge(s.Cooling))
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
