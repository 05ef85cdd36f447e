package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/thermoctl/internal/ports"
	"github.com/Agrid-Dev/thermoctl/internal/thermostat"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

// Signals are the controller output signals announced on <base>/event/<name>.
// Either may be nil; the corresponding announcer is then skipped.
type Signals struct {
	Heating *thermostat.Signal
	Cooling *thermostat.Signal
}

type Controller struct {
	svc  ports.ThermostatService
	sigs Signals
	cfg  Config

	client mqtt.Client
}

func New(svc ports.ThermostatService, sigs Signals, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "thermoctl/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "thermoctl-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc:  svc,
		sigs: sigs,
		cfg:  cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		// Subscribe to all set commands under BaseTopic.
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		// If subscribe fails, paho exposes token.Error().
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	if c.sigs.Heating != nil {
		go c.announceEdges(ctx, "heating", c.sigs.Heating)
	}
	if c.sigs.Cooling != nil {
		go c.announceEdges(ctx, "cooling", c.sigs.Cooling)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	var last thermostat.Snapshot
	first := true

	// publish immediately once
	c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Snapshot()
			if first || !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
				first = false
			}
		}
	}
}

// announceEdges publishes on every deassert->assert edge of sig. Wait only
// wakes on that edge, so after a wakeup we poll until the signal drops before
// arming the next wait.
func (c *Controller) announceEdges(ctx context.Context, name string, sig *thermostat.Signal) {
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	for {
		if err := sig.Wait(ctx); err != nil {
			return
		}
		c.publishEvent(name)

		for sig.Asserted() {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (c *Controller) publishEvent(name string) {
	b, _ := json.Marshal(map[string]any{"signal": name, "asserted": true})
	c.client.Publish(c.topic("event/"+name), c.cfg.QoS, false, b)
}

func (c *Controller) publishSnapshot() {
	s := c.svc.Snapshot()
	dto := snapshotDTO{
		Mode:         s.Mode.String(),
		Setpoint:     s.Setpoint,
		LowSetpoint:  s.LowSetpoint,
		HighSetpoint: s.HighSetpoint,
		Temperature:  s.Temperature,
		Band:         s.Band,
		Calibration:  s.Calibration,
		Heating:      s.Heating,
		Cooling:      s.Cooling,
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

type snapshotDTO struct {
	Mode         string   `json:"mode"`
	Setpoint     *float64 `json:"temperature_setpoint"`
	LowSetpoint  *float64 `json:"temperature_setpoint_low"`
	HighSetpoint *float64 `json:"temperature_setpoint_high"`
	Temperature  *float64 `json:"temperature"`
	Band         float64  `json:"band"`
	Calibration  float64  `json:"calibration"`
	Heating      bool     `json:"heating"`
	Cooling      bool     `json:"cooling"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

type setpointsReq struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	// Dispatch by field
	switch field {
	case "mode":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return
		}
		m, err := thermostat.ParseMode(s)
		if err != nil {
			return
		}
		_ = c.svc.SetMode(m)

	case "temperature_setpoint":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetSetpoint(v)

	case "temperature_setpoints":
		v, err := decodeValueStrict[setpointsReq](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetSetpoints(v.Low, v.High)

	case "temperature":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetTemp(v)

	case "band":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetBand(v)

	case "calibration":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetCalibration(v)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
