package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/thermoctl/cmd/app"
	httpctrl "github.com/Agrid-Dev/thermoctl/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/thermoctl/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/thermoctl/internal/controllers/mqtt"
	"github.com/Agrid-Dev/thermoctl/internal/metrics"
	"github.com/Agrid-Dev/thermoctl/internal/relay"
	"github.com/Agrid-Dev/thermoctl/internal/sensor"
	"github.com/Agrid-Dev/thermoctl/internal/thermostat"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	th, err := thermostat.New(cfg.Thermostat.Params(), logger)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Thermostat.ApplyInitialState(th); err != nil {
		log.Fatal(err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewThermostatCollector(th, cfg.DeviceID))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(th, cfg.Controllers.HTTP.Addr, cfg.DeviceID, registry)
		logger.Info("http controller listening", "addr", cfg.Controllers.HTTP.Addr)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if cfg.Controllers.MQTT.Enabled {
		ctrl, err := mqttctrl.New(th, mqttctrl.Signals{Heating: th.Heating(), Cooling: th.Cooling()}, mqttctrl.Config{
			DeviceID:        cfg.DeviceID,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainSnapshot:  cfg.Controllers.MQTT.RetainSnapshot,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			log.Fatal(err)
		}
		logger.Info("mqtt controller starting", "broker", cfg.Controllers.MQTT.BrokerURL)
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if cfg.Controllers.Modbus.Enabled {
		ctrl, err := modbusctrl.New(th, modbusctrl.Config{
			DeviceID: cfg.DeviceID,
			Addr:     cfg.Controllers.Modbus.Addr,
			UnitID:   cfg.Controllers.Modbus.UnitID,
		})
		if err != nil {
			log.Fatal(err)
		}
		logger.Info("modbus controller starting", "addr", cfg.Controllers.Modbus.Addr)
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if cfg.Relay.Enabled {
		heatOut, err := relay.NewLineOutput(cfg.Relay.Chip, cfg.Relay.HeatingPin)
		if err != nil {
			log.Fatal(err)
		}
		defer heatOut.Close()
		coolOut, err := relay.NewLineOutput(cfg.Relay.Chip, cfg.Relay.CoolingPin)
		if err != nil {
			log.Fatal(err)
		}
		defer coolOut.Close()

		heatDrv := relay.NewDriver("heating", th.Heating(), heatOut, cfg.Relay.PollInterval, logger)
		coolDrv := relay.NewDriver("cooling", th.Cooling(), coolOut, cfg.Relay.PollInterval, logger)
		g.Go(func() error { return heatDrv.Run(ctx) })
		g.Go(func() error { return coolDrv.Run(ctx) })
	}

	if cfg.Simulator.Enabled {
		sim, err := sensor.NewSimulator(sensor.SimulatorParams{
			InitialTemperature: cfg.Simulator.InitialTemperature,
			OutdoorTemperature: cfg.Simulator.OutdoorTemperature,
			LossCoefficient:    cfg.Simulator.LossCoefficient,
			HeatRate:           cfg.Simulator.HeatRate,
			CoolRate:           cfg.Simulator.CoolRate,
			Interval:           cfg.Simulator.Interval,
		}, th, logger)
		if err != nil {
			log.Fatal(err)
		}
		logger.Info("sensor simulator starting", "interval", cfg.Simulator.Interval)
		g.Go(func() error { return sim.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exited", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
