// Package sensor provides temperature sources that feed the controller.
// The simulator stands in for a real probe: it models a room losing heat to
// the outdoors while the heating/cooling signals push it the other way.
package sensor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Agrid-Dev/thermoctl/internal/ports"
)

var (
	ErrNegativeLossCoefficient = errors.New("loss coefficient must be greater or equal to zero")
	ErrNegativeRate            = errors.New("heat/cool rates must be greater or equal to zero")
)

type SimulatorParams struct {
	InitialTemperature float64
	OutdoorTemperature float64
	LossCoefficient    float64 // >= 0, represents conductivity. 0 for no loss.
	HeatRate           float64 // degrees per second while heating is asserted
	CoolRate           float64 // degrees per second while cooling is asserted
	Interval           time.Duration
}

func (params *SimulatorParams) Validate() error {
	if params.LossCoefficient < 0 {
		return ErrNegativeLossCoefficient
	}
	if params.HeatRate < 0 || params.CoolRate < 0 {
		return ErrNegativeRate
	}
	return nil
}

type Simulator struct {
	params SimulatorParams
	svc    ports.ThermostatService
	logger *slog.Logger
}

func NewSimulator(params SimulatorParams, svc ports.ThermostatService, logger *slog.Logger) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Interval <= 0 {
		params.Interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{params: params, svc: svc, logger: logger}, nil
}

// Step advances the simulated room temperature by dt and returns it. The
// actuator effect is read from the service snapshot, closing the loop through
// the controller's output signals.
func (sim *Simulator) Step(temp float64, dt time.Duration) float64 {
	snap := sim.svc.Snapshot()

	delta := sim.params.LossCoefficient * (sim.params.OutdoorTemperature - temp) * dt.Seconds()
	if snap.Heating {
		delta += sim.params.HeatRate * dt.Seconds()
	}
	if snap.Cooling {
		delta -= sim.params.CoolRate * dt.Seconds()
	}
	return temp + delta
}

// Run feeds the controller a reading every interval until ctx is canceled.
func (sim *Simulator) Run(ctx context.Context) error {
	temp := sim.params.InitialTemperature
	if err := sim.svc.SetTemp(temp); err != nil {
		return err
	}

	ticker := time.NewTicker(sim.params.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			temp = sim.Step(temp, sim.params.Interval)
			if err := sim.svc.SetTemp(temp); err != nil {
				sim.logger.Warn("simulated reading rejected", "temperature", temp, "error", err)
			}
		}
	}
}
