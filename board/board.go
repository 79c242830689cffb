// Package board binds the controller core to a Linux single-board
// computer: GPIO buttons, an ADS1115 joystick and an MPU-6050 on I²C, and a
// UART host link.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/strumpad/strumpad/buttons"
	"github.com/strumpad/strumpad/config"
	"github.com/strumpad/strumpad/frame"
	"github.com/strumpad/strumpad/pipeline"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Board owns the opened peripherals.
type Board struct {
	Inputs *buttons.Inputs
	Axes   *Joystick
	Motion *MPU6050

	serial  io.WriteCloser
	closers []io.Closer
}

// Open initialises the host drivers and opens every peripheral cfg enables.
// Button watchers run until ctx is done.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (_ *Board, err error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	for _, f := range state.Failed {
		logger.Debug("driver failed", "driver", f.D, "err", f.Err)
	}

	b := &Board{Inputs: new(buttons.Inputs)}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	pins, err := ResolveButtons(cfg.Board.Buttons, gpioreg.ByName)
	if err != nil {
		return nil, err
	}
	if err := WatchButtons(ctx, pins, b.Inputs); err != nil {
		return nil, err
	}
	logger.Debug("buttons ready", "pins", len(pins))

	caps := cfg.Capabilities
	if caps.HasAnalogAxes || caps.HasMotionSensor {
		bus, err := i2creg.Open(cfg.Board.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("open i2c %q: %w", cfg.Board.I2CBus, err)
		}
		b.closers = append(b.closers, bus)
		if err := b.openI2C(bus, cfg, logger); err != nil {
			return nil, err
		}
	}

	port, err := OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return nil, err
	}
	b.serial = port
	logger.Info("serial open", "port", cfg.Serial.Port, "baud", cfg.Serial.Baud)

	return b, nil
}

func (b *Board) openI2C(bus i2c.Bus, cfg config.Config, logger *log.Logger) error {
	if cfg.Capabilities.HasAnalogAxes {
		j, err := NewJoystick(bus, cfg.Board.ADCAddr)
		if err != nil {
			return err
		}
		b.Axes = j
		logger.Debug("joystick ready", "addr", fmt.Sprintf("0x%02x", cfg.Board.ADCAddr))
	}
	if cfg.Capabilities.HasMotionSensor {
		m, err := NewMPU6050(bus, cfg.Board.MotionAddr)
		if err != nil {
			return err
		}
		b.Motion = m
		logger.Debug("motion sensor ready", "addr", fmt.Sprintf("0x%02x", cfg.Board.MotionAddr))
	}
	return nil
}

// Devices returns the pipeline view of the board. diag receives the button
// lines; status may be nil when no display is attached.
func (b *Board) Devices(diag io.Writer, status pipeline.StatusWriter) pipeline.Devices {
	dev := pipeline.Devices{
		Inputs:     b.Inputs,
		Diagnostic: diag,
		Status:     status,
	}
	if b.serial != nil {
		dev.Serial = frame.Writer(b.serial)
	}
	// Leave the interfaces nil rather than holding a typed nil pointer.
	if b.Axes != nil {
		dev.Axes = b.Axes
	}
	if b.Motion != nil {
		dev.Motion = b.Motion
	}
	return dev
}

// Close releases the serial port and the I²C bus.
func (b *Board) Close() error {
	var errs []error
	if b.serial != nil {
		errs = append(errs, b.serial.Close())
	}
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
