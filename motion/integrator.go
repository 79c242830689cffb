// Package motion fuses MPU-6050 accelerometer and gyroscope samples into an
// orientation estimate, derives a shake/strum trigger from it, and resets
// the sensor when it stops producing data.
package motion

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/strumpad/strumpad/event"
)

// Defaults for the motion producer.
const (
	DefaultPeriod           = 100 * time.Millisecond
	DefaultTriggerThreshold = 60
)

// Reading is one raw register block from the sensor.
type Reading struct {
	Accel [3]int16
	Gyro  [3]int16
	Temp  int16
}

// Sample is a Reading converted to physical units.
type Sample struct {
	Accel Vec3 // g
	Gyro  Vec3 // °/s
	TempC float64
}

// Scaled converts r to physical units.
func (r Reading) Scaled() Sample {
	return Sample{
		Accel: Vec3{
			X: float64(r.Accel[0]) / AccelLSBPerG,
			Y: float64(r.Accel[1]) / AccelLSBPerG,
			Z: float64(r.Accel[2]) / AccelLSBPerG,
		},
		Gyro: Vec3{
			X: float64(r.Gyro[0]) / GyroLSBPerDPS,
			Y: float64(r.Gyro[1]) / GyroLSBPerDPS,
			Z: float64(r.Gyro[2]) / GyroLSBPerDPS,
		},
		TempC: float64(r.Temp)/TempLSBPerC + TempOffsetC,
	}
}

// Sensor is a register-addressed motion sensor.
type Sensor interface {
	Read() (Reading, error)
	// Reset re-initialises the sensor's power management register.
	Reset() error
}

// Value derives the motion value from an earth-frame linear acceleration:
// the X component in hundredths of g, truncated and clamped to the event
// range.
func Value(earth Vec3) int {
	v := math.Trunc(earth.X * 100)
	if math.IsNaN(v) {
		return 0
	}
	return int(event.Clamp(int(max(-1e6, min(1e6, v)))))
}

// Status is a copy of the integrator state for diagnostics.
type Status struct {
	Orientation Orientation
	TempC       float64
	LastValue   int
	Health      Health
	Resets      uint32
}

// Integrator runs the AHRS and the watchdog for one sensor.
type Integrator struct {
	sensor   Sensor
	ahrs     *AHRS
	watchdog *Watchdog
	trigger  int
	logger   *log.Logger

	mu     sync.Mutex
	status Status
}

// Config holds the integrator tunables.
type Config struct {
	Period           time.Duration
	ZeroThreshold    int
	TriggerThreshold int
}

// NewIntegrator creates an Integrator for sensor.
func NewIntegrator(sensor Sensor, cfg Config, logger *log.Logger) *Integrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	return &Integrator{
		sensor:   sensor,
		ahrs:     NewAHRS(cfg.Period.Seconds()),
		watchdog: NewWatchdog(cfg.ZeroThreshold),
		trigger:  cfg.TriggerThreshold,
		logger:   logger,
	}
}

// Step reads one sample, updates the estimate and the watchdog, and returns
// an event when the motion value exceeds the trigger threshold.
func (i *Integrator) Step() (event.AxisEvent, bool, error) {
	r, err := i.sensor.Read()
	if err != nil {
		return event.AxisEvent{}, false, err
	}
	s := r.Scaled()
	i.ahrs.Update(s.Gyro, s.Accel)
	v := Value(i.ahrs.EarthAccel(s.Accel))

	if i.watchdog.Observe(v) {
		i.logger.Warn("motion sensor stalled, resetting",
			"zeros", i.watchdog.Threshold, "resets", i.watchdog.Resets())
		if err := i.sensor.Reset(); err != nil {
			i.logger.Warn("motion sensor reset failed", "err", err)
		}
		i.ahrs.ClearBias()
	}

	i.mu.Lock()
	i.status = Status{
		Orientation: i.ahrs.Orientation(),
		TempC:       s.TempC,
		LastValue:   v,
		Health:      i.watchdog.State(),
		Resets:      i.watchdog.Resets(),
	}
	i.mu.Unlock()

	if abs(v) <= i.trigger {
		return event.AxisEvent{}, false, nil
	}
	return event.AxisEvent{Axis: event.Motion, Value: int16(v)}, true, nil
}

// Status returns a copy of the latest state.
func (i *Integrator) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Run steps every period and forwards triggered events to sink until ctx is
// done. Read errors skip the period.
func (i *Integrator) Run(ctx context.Context, period time.Duration, sink event.Sink) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		ev, ok, err := i.Step()
		if err != nil {
			i.logger.Debug("motion read failed", "err", err)
			continue
		}
		if ok {
			sink.Enqueue(ev)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
