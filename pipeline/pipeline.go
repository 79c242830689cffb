// Package pipeline wires the input producers, the event multiplexer and the
// frame transmitter into one core, configured by a capability set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/strumpad/strumpad/axis"
	"github.com/strumpad/strumpad/buttons"
	"github.com/strumpad/strumpad/config"
	"github.com/strumpad/strumpad/event"
	"github.com/strumpad/strumpad/frame"
	"github.com/strumpad/strumpad/motion"
	"github.com/strumpad/strumpad/shm"
	"golang.org/x/sync/errgroup"
)

// ErrMissingDevice is returned when an enabled capability has no device.
var ErrMissingDevice = errors.New("pipeline: missing device")

// StatusWriter receives periodic snapshots for a diagnostic display.
type StatusWriter interface {
	Write(snap shm.Snapshot)
}

// Devices are the peripherals the core consumes. Only the ones enabled by
// the capability set need to be present; Inputs and Serial always do.
type Devices struct {
	Inputs     *buttons.Inputs
	Diagnostic io.Writer
	Axes       axis.Sampler
	Motion     motion.Sensor
	Serial     frame.ByteWriter
	Status     StatusWriter
}

// Pipeline is one configured controller core.
type Pipeline struct {
	cfg    config.Config
	logger *log.Logger

	mux        *event.Mux
	tracker    *buttons.Tracker
	axes       []*axis.Producer
	integrator *motion.Integrator
	tx         *frame.Transmitter
	status     StatusWriter
}

// New validates cfg and instantiates one producer per enabled capability.
// Any error here is an initialisation failure and the device must not
// start.
func New(cfg config.Config, dev Devices, logger *log.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if dev.Inputs == nil {
		return nil, fmt.Errorf("%w: button inputs", ErrMissingDevice)
	}
	if dev.Serial == nil {
		return nil, fmt.Errorf("%w: serial output", ErrMissingDevice)
	}

	mux, err := event.NewMux(cfg.ChannelCapacity)
	if err != nil {
		return nil, fmt.Errorf("creating event channel: %w", err)
	}

	p := &Pipeline{
		cfg:     cfg,
		logger:  logger,
		mux:     mux,
		tracker: buttons.NewTracker(dev.Inputs, dev.Diagnostic),
		tx:      frame.NewTransmitter(dev.Serial, cfg.FrameLayout, logger),
	}

	caps := cfg.Capabilities
	if caps.HasAnalogAxes {
		if dev.Axes == nil {
			return nil, fmt.Errorf("%w: analog axes", ErrMissingDevice)
		}
		for _, id := range []event.AxisID{event.X, event.Y} {
			f := axis.NewFilter(id, cfg.FilterWindow, cfg.DeadZoneThreshold)
			p.axes = append(p.axes, axis.NewProducer(dev.Axes, f, mux, logger))
		}
	}
	if caps.HasMotionSensor {
		if dev.Motion == nil {
			return nil, fmt.Errorf("%w: motion sensor", ErrMissingDevice)
		}
		p.integrator = motion.NewIntegrator(dev.Motion, motion.Config{
			Period:           cfg.SamplePeriodMotion,
			ZeroThreshold:    cfg.WatchdogZeroThreshold,
			TriggerThreshold: cfg.MotionTriggerThreshold,
		}, logger)
	}
	if caps.HasDiagnosticDisplay {
		if dev.Status == nil {
			return nil, fmt.Errorf("%w: diagnostic display", ErrMissingDevice)
		}
		p.status = dev.Status
	}

	return p, nil
}

// Mux returns the event channel shared by the producers.
func (p *Pipeline) Mux() *event.Mux { return p.mux }

// Run starts every worker and blocks until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	caps := p.cfg.Capabilities
	p.logger.Info("pipeline starting",
		"analog", caps.HasAnalogAxes,
		"motion", caps.HasMotionSensor,
		"display", caps.HasDiagnosticDisplay,
		"layout", p.tx.Layout(),
		"capacity", p.mux.Cap())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.tracker.Run(ctx, p.cfg.PollPeriodButtons, func(err error) {
			p.logger.Warn("diagnostic write failed", "err", err)
		})
	})
	for _, ap := range p.axes {
		g.Go(func() error {
			return ap.Run(ctx, p.cfg.SamplePeriodAxis)
		})
	}
	if p.integrator != nil {
		g.Go(func() error {
			return p.integrator.Run(ctx, p.cfg.SamplePeriodMotion, p.mux)
		})
	}
	g.Go(func() error {
		return p.tx.Run(ctx, p.mux)
	})
	g.Go(func() error {
		return p.monitor(ctx)
	})

	err := g.Wait()
	p.logger.Info("pipeline stopped",
		"frames", p.tx.Frames(), "dropped", p.mux.Dropped())
	return err
}

// Snapshot collects the current counters and motion state.
func (p *Pipeline) Snapshot() shm.Snapshot {
	snap := shm.Snapshot{
		Enqueued: p.mux.Enqueued(),
		Dropped:  p.mux.Dropped(),
		Frames:   p.tx.Frames(),
		Failed:   p.tx.Failed(),
		Buttons:  p.tracker.Mask(),
	}
	caps := p.cfg.Capabilities
	if caps.HasAnalogAxes {
		snap.Caps |= shm.CapAnalogAxes
	}
	if caps.HasDiagnosticDisplay {
		snap.Caps |= shm.CapDiagnosticDisplay
	}
	if p.integrator != nil {
		snap.Caps |= shm.CapMotionSensor
		st := p.integrator.Status()
		snap.Resets = st.Resets
		snap.Health = uint8(st.Health)
		snap.Motion = int16(st.LastValue)
		snap.TempC = float32(st.TempC)
		snap.Roll = float32(st.Orientation.Roll)
		snap.Pitch = float32(st.Orientation.Pitch)
		snap.Yaw = float32(st.Orientation.Yaw)
	}
	return snap
}

// monitor publishes snapshots to the display and logs new drops.
func (p *Pipeline) monitor(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.StatusPeriod)
	defer ticker.Stop()

	var lastDropped uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		snap := p.Snapshot()
		if p.status != nil {
			p.status.Write(snap)
		}
		if snap.Dropped != lastDropped {
			p.logger.Debug("events dropped", "total", snap.Dropped, "new", snap.Dropped-lastDropped)
			lastDropped = snap.Dropped
		}
	}
}
