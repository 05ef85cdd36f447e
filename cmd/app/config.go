package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/thermoctl/internal/thermostat"
)

const envPrefix = "THERMOCTL_"

type Config struct {
	DeviceID  string `koanf:"device_id"`
	LogLevel  string `koanf:"log_level"`  // debug | info | warn | error
	LogFormat string `koanf:"log_format"` // text | json

	Controllers struct {
		HTTP   HTTPConfig   `koanf:"http"`
		MQTT   MQTTConfig   `koanf:"mqtt"`
		Modbus ModbusConfig `koanf:"modbus"`
	} `koanf:"controllers"`

	Thermostat ThermostatConfig `koanf:"thermostat"`
	Relay      RelayConfig      `koanf:"relay"`
	Simulator  SimulatorConfig  `koanf:"simulator"`
}

type ThermostatConfig struct {
	// Band is required; the controller refuses to start without an explicit
	// hysteresis band.
	Band          float64       `koanf:"band"`
	TempMin       float64       `koanf:"temp_min"`
	TempMax       float64       `koanf:"temp_max"`
	HistoryLen    int           `koanf:"history_len"`
	HistoryWindow time.Duration `koanf:"history_window"`

	// Initial state, all optional. Mode defaults to "off".
	Mode         *string  `koanf:"mode"` // "off" | "heat" | "cool" | "auto"
	Setpoint     *float64 `koanf:"temperature_setpoint"`
	SetpointLow  *float64 `koanf:"temperature_setpoint_low"`
	SetpointHigh *float64 `koanf:"temperature_setpoint_high"`
	Calibration  *float64 `koanf:"calibration"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

type RelayConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Chip         string        `koanf:"chip"`
	HeatingPin   int           `koanf:"heating_pin"`
	CoolingPin   int           `koanf:"cooling_pin"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

type SimulatorConfig struct {
	Enabled            bool          `koanf:"enabled"`
	InitialTemperature float64       `koanf:"initial_temperature"`
	OutdoorTemperature float64       `koanf:"outdoor_temperature"`
	LossCoefficient    float64       `koanf:"loss_coefficient"`
	HeatRate           float64       `koanf:"heat_rate"`
	CoolRate           float64       `koanf:"cool_rate"`
	Interval           time.Duration `koanf:"interval"`
}

func defaults() Config {
	var cfg Config
	cfg.DeviceID = "default"
	cfg.LogLevel = "info"
	cfg.LogFormat = "text"
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	cfg.Controllers.Modbus.UnitID = 1
	cfg.Relay.Chip = "gpiochip0"
	cfg.Relay.PollInterval = 250 * time.Millisecond
	cfg.Simulator.Interval = 1 * time.Second
	return cfg
}

// LoadConfig layers defaults, an optional config file (.yaml/.yml/.json) and
// THERMOCTL_* environment variables, in that order of precedence.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("load config file: %w", err)
			}
			// Config file missing -> defaults + env only
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.Modbus.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

// envKeyTransform maps THERMOCTL_-stripped env keys onto koanf paths:
// CONTROLLERS_HTTP_ADDR -> controllers.http.addr,
// THERMOSTAT_TEMPERATURE_SETPOINT -> thermostat.temperature_setpoint.
// Keys that do not match a known group pass through lowercased.
func envKeyTransform(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}
	parts := strings.Split(key, "_")

	switch parts[0] {
	case "controllers":
		if len(parts) >= 3 {
			return parts[0] + "." + parts[1] + "." + strings.Join(parts[2:], "_")
		}
	case "thermostat", "relay", "simulator":
		if len(parts) >= 2 {
			return parts[0] + "." + strings.Join(parts[1:], "_")
		}
	}
	return key
}

// Params maps the thermostat section onto controller params.
func (c ThermostatConfig) Params() thermostat.Params {
	return thermostat.Params{
		Band:          c.Band,
		TempMin:       c.TempMin,
		TempMax:       c.TempMax,
		HistoryLen:    c.HistoryLen,
		HistoryWindow: c.HistoryWindow,
	}
}

// ApplyInitialState pushes the configured mode, setpoints and calibration
// into a freshly constructed controller, in an order that keeps every
// intermediate state valid.
func (c ThermostatConfig) ApplyInitialState(th *thermostat.Controller) error {
	if c.Calibration != nil {
		if err := th.SetCalibration(*c.Calibration); err != nil {
			return fmt.Errorf("calibration: %w", err)
		}
	}
	if c.Setpoint != nil {
		if err := th.SetSetpoint(*c.Setpoint); err != nil {
			return fmt.Errorf("setpoint: %w", err)
		}
	}
	if c.SetpointLow != nil || c.SetpointHigh != nil {
		if c.SetpointLow == nil || c.SetpointHigh == nil {
			return fmt.Errorf("setpoint range: both low and high must be set")
		}
		if err := th.SetSetpoints(*c.SetpointLow, *c.SetpointHigh); err != nil {
			return fmt.Errorf("setpoint range: %w", err)
		}
	}
	if c.Mode != nil {
		m, err := thermostat.ParseMode(*c.Mode)
		if err != nil {
			return err
		}
		if err := th.SetMode(m); err != nil {
			return err
		}
	}
	return nil
}
