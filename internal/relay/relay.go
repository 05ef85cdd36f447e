// Package relay drives actuator outputs from the thermostat signals.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/Agrid-Dev/thermoctl/internal/thermostat"
)

// Output is a single actuator line (relay coil, SSR input, LED).
type Output interface {
	// Set energizes or releases the line.
	Set(on bool) error

	// Close releases the line resources.
	Close() error
}

// Driver keeps one Output in lockstep with one thermostat signal: it suspends
// on the signal's rising edge, energizes the line, then polls until the signal
// deasserts and releases the line. The signal only wakes waiters on the rising
// edge, so the falling edge has to be polled.
type Driver struct {
	name   string
	sig    *thermostat.Signal
	out    Output
	poll   time.Duration
	logger *slog.Logger
}

func NewDriver(name string, sig *thermostat.Signal, out Output, poll time.Duration, logger *slog.Logger) *Driver {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{name: name, sig: sig, out: out, poll: poll, logger: logger}
}

// Run blocks until ctx is canceled. The line is released on the way out.
func (d *Driver) Run(ctx context.Context) error {
	defer func() {
		if err := d.out.Set(false); err != nil {
			d.logger.Error("release line", "relay", d.name, "error", err)
		}
	}()

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		if err := d.sig.Wait(ctx); err != nil {
			return err
		}
		d.logger.Info("relay on", "relay", d.name)
		if err := d.out.Set(true); err != nil {
			d.logger.Error("energize line", "relay", d.name, "error", err)
		}

		for d.sig.Asserted() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		d.logger.Info("relay off", "relay", d.name)
		if err := d.out.Set(false); err != nil {
			d.logger.Error("release line", "relay", d.name, "error", err)
		}
	}
}
