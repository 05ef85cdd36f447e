package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/thermoctl/internal/ports"
	"github.com/Agrid-Dev/thermoctl/internal/thermostat"
)

// Register map.
//
//	Coils (read-only):     0 heating, 1 cooling
//	Holding registers:     0 setpoint, 1 low, 2 high, 3 mode, 4 band,
//	                       5 calibration, 6 temperature (write = feed a reading)
//	Input registers:       0 last temperature reading
//
// Temperatures and bands are scaled by TemperatureScale into int16.
// Absent values (no setpoint / no reading yet) read as NoValue.
const (
	regSetpoint     = 0
	regLowSetpoint  = 1
	regHighSetpoint = 2
	regMode         = 3
	regBand         = 4
	regCalibration  = 5
	regTemperature  = 6
	regCount        = 7
)

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

type Controller struct {
	svc ports.ThermostatService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.ThermostatService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server and registers handlers that apply writes
// immediately and serve reads directly from the thermostat service. It blocks
// until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside
	// mbserver between handler registration and the server's goroutines.

	// Read Coils (function 1) - heating and cooling signal levels.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 2000 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > 2 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Snapshot()
		coilByte := byte(0)
		for i := 0; i < qty; i++ {
			on := false
			switch start + i {
			case 0:
				on = snap.Heating
			case 1:
				on = snap.Cooling
			}
			if on {
				coilByte |= 1 << i
			}
		}
		// response: byte count (1) + coil bytes
		return []byte{1, coilByte}, &mbserver.Success
	})

	// Read Holding Registers (function 3).
	serv.RegisterFunctionHandler(3, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > regCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Snapshot()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			switch start + i {
			case regSetpoint:
				regs = append(regs, encodeOptTemp(snap.Setpoint))
			case regLowSetpoint:
				regs = append(regs, encodeOptTemp(snap.LowSetpoint))
			case regHighSetpoint:
				regs = append(regs, encodeOptTemp(snap.HighSetpoint))
			case regMode:
				regs = append(regs, uint16(snap.Mode))
			case regBand:
				regs = append(regs, encodeTemp(snap.Band))
			case regCalibration:
				regs = append(regs, encodeTemp(snap.Calibration))
			case regTemperature:
				regs = append(regs, encodeOptTemp(snap.Temperature))
			default:
				return []byte{}, &mbserver.IllegalDataAddress
			}
		}
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Read Input Registers (function 4) - IR 0 (last temperature reading).
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty != 1 || start != 0 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Snapshot()
		resp := make([]byte, 1+2)
		resp[0] = 2
		binary.BigEndian.PutUint16(resp[1:3], encodeOptTemp(snap.Temperature))
		return resp, &mbserver.Success
	})

	// Write Single Register (function 6)
	serv.RegisterFunctionHandler(6, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if ex := c.writeRegister(int(addr), value); ex != nil {
			return []byte{}, ex
		}

		// echo request (address + value)
		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Multiple Registers (function 16)
	serv.RegisterFunctionHandler(16, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		d := frame.GetData()
		if len(d) < 5 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(d[0:2])
		quantity := binary.BigEndian.Uint16(d[2:4])
		byteCount := int(d[4])
		if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
			return []byte{}, &mbserver.IllegalDataValue
		}

		// The low/high pair must land atomically when written together, so it
		// is collected across the write rather than applied register by register.
		var low, high *float64
		for i := 0; i < int(quantity); i++ {
			addr := int(start) + i
			val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
			switch addr {
			case regLowSetpoint:
				v := decodeTemp(val)
				low = &v
			case regHighSetpoint:
				v := decodeTemp(val)
				high = &v
			default:
				if ex := c.writeRegister(addr, val); ex != nil {
					return []byte{}, ex
				}
			}
		}
		if low != nil || high != nil {
			snap := c.svc.Snapshot()
			if low == nil {
				low = snap.LowSetpoint
			}
			if high == nil {
				high = snap.HighSetpoint
			}
			if low == nil || high == nil {
				return []byte{}, &mbserver.IllegalDataValue
			}
			if err := c.svc.SetSetpoints(*low, *high); err != nil {
				return []byte{}, &mbserver.IllegalDataValue
			}
		}

		resp := make([]byte, 4)
		binary.BigEndian.PutUint16(resp[0:2], start)
		binary.BigEndian.PutUint16(resp[2:4], quantity)
		return resp, &mbserver.Success
	})

	// Now start listening after all handlers are registered.
	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func (c *Controller) writeRegister(addr int, value uint16) *mbserver.Exception {
	switch addr {
	case regSetpoint:
		if err := c.svc.SetSetpoint(decodeTemp(value)); err != nil {
			return &mbserver.IllegalDataValue
		}
	case regLowSetpoint:
		snap := c.svc.Snapshot()
		if snap.HighSetpoint == nil {
			return &mbserver.IllegalDataValue
		}
		if err := c.svc.SetSetpoints(decodeTemp(value), *snap.HighSetpoint); err != nil {
			return &mbserver.IllegalDataValue
		}
	case regHighSetpoint:
		snap := c.svc.Snapshot()
		if snap.LowSetpoint == nil {
			return &mbserver.IllegalDataValue
		}
		if err := c.svc.SetSetpoints(*snap.LowSetpoint, decodeTemp(value)); err != nil {
			return &mbserver.IllegalDataValue
		}
	case regMode:
		if err := c.svc.SetMode(thermostat.Mode(value)); err != nil {
			return &mbserver.IllegalDataValue
		}
	case regBand:
		if err := c.svc.SetBand(decodeTemp(value)); err != nil {
			return &mbserver.IllegalDataValue
		}
	case regCalibration:
		if err := c.svc.SetCalibration(decodeTemp(value)); err != nil {
			return &mbserver.IllegalDataValue
		}
	case regTemperature:
		if err := c.svc.SetTemp(decodeTemp(value)); err != nil {
			return &mbserver.IllegalDataValue
		}
	default:
		return &mbserver.IllegalDataAddress
	}
	return nil
}

const TemperatureScale int = 100

// NoValue is read from registers whose value is not set yet.
const NoValue uint16 = 0x8000

func encodeTemp(v float64) uint16 {
	r := clamp(int(math.Round(v*float64(TemperatureScale))), math.MinInt16+1, math.MaxInt16)
	return uint16(int16(r))
}

func encodeOptTemp(v *float64) uint16 {
	if v == nil {
		return NoValue
	}
	return encodeTemp(*v)
}

func decodeTemp(u uint16) float64 {
	i := int16(u)
	return float64(i) / float64(TemperatureScale)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
