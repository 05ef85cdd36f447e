package testutil

import "github.com/Agrid-Dev/thermoctl/internal/thermostat"

func f64(v float64) *float64 { return &v }

// FakeThermostatService is a reusable fake implementing ports.ThermostatService.
// Put ONLY what multiple test packages need here.
type FakeThermostatService struct {
	S thermostat.Snapshot
	H []thermostat.Reading

	SetModeCalled bool
	SetModeArg    thermostat.Mode
	SetModeErr    error

	SetSetpointCalled bool
	SetSetpointArg    float64
	SetSetpointErr    error

	SetSetpointsCalled bool
	SetSetpointsLow    float64
	SetSetpointsHigh   float64
	SetSetpointsErr    error

	SetTempCalled bool
	SetTempArg    float64
	SetTempErr    error

	SetBandCalled bool
	SetBandArg    float64
	SetBandErr    error

	SetCalibrationCalled bool
	SetCalibrationArg    float64
	SetCalibrationErr    error
}

func NewFakeThermostatService() *FakeThermostatService {
	return &FakeThermostatService{
		S: thermostat.Snapshot{
			Mode:         thermostat.ModeAuto,
			Setpoint:     f64(22),
			LowSetpoint:  f64(18),
			HighSetpoint: f64(26),
			Temperature:  f64(21),
			Band:         1,
		},
	}
}

func (f *FakeThermostatService) Snapshot() thermostat.Snapshot { return f.S }

func (f *FakeThermostatService) History() []thermostat.Reading { return f.H }

func (f *FakeThermostatService) SetMode(m thermostat.Mode) error {
	f.SetModeCalled = true
	f.SetModeArg = m
	if f.SetModeErr != nil {
		return f.SetModeErr
	}
	f.S.Mode = m
	return nil
}

func (f *FakeThermostatService) SetSetpoint(v float64) error {
	f.SetSetpointCalled = true
	f.SetSetpointArg = v
	if f.SetSetpointErr != nil {
		return f.SetSetpointErr
	}
	f.S.Setpoint = f64(v)
	return nil
}

func (f *FakeThermostatService) SetSetpoints(low, high float64) error {
	f.SetSetpointsCalled = true
	f.SetSetpointsLow = low
	f.SetSetpointsHigh = high
	if f.SetSetpointsErr != nil {
		return f.SetSetpointsErr
	}
	f.S.LowSetpoint = f64(low)
	f.S.HighSetpoint = f64(high)
	return nil
}

func (f *FakeThermostatService) SetTemp(v float64) error {
	f.SetTempCalled = true
	f.SetTempArg = v
	if f.SetTempErr != nil {
		return f.SetTempErr
	}
	f.S.Temperature = f64(v)
	return nil
}

func (f *FakeThermostatService) SetBand(v float64) error {
	f.SetBandCalled = true
	f.SetBandArg = v
	if f.SetBandErr != nil {
		return f.SetBandErr
	}
	f.S.Band = v
	return nil
}

func (f *FakeThermostatService) SetCalibration(v float64) error {
	f.SetCalibrationCalled = true
	f.SetCalibrationArg = v
	if f.SetCalibrationErr != nil {
		return f.SetCalibrationErr
	}
	f.S.Calibration = v
	return nil
}
