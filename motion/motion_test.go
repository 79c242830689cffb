package motion

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strumpad/strumpad/event"
)

type scriptedSensor struct {
	readings []Reading
	err      error
	resets   int
}

func (s *scriptedSensor) Read() (Reading, error) {
	if s.err != nil {
		return Reading{}, s.err
	}
	r := s.readings[0]
	if len(s.readings) > 1 {
		s.readings = s.readings[1:]
	}
	return r, nil
}

func (s *scriptedSensor) Reset() error {
	s.resets++
	return nil
}

var (
	flat    = Reading{Accel: [3]int16{0, 0, 16384}}
	stalled = Reading{}
)

func TestReadingScaled(t *testing.T) {
	s := Reading{
		Accel: [3]int16{16384, -8192, 0},
		Gyro:  [3]int16{131, -262, 0},
		Temp:  -521,
	}.Scaled()
	assert.InDelta(t, 1.0, s.Accel.X, 1e-9)
	assert.InDelta(t, -0.5, s.Accel.Y, 1e-9)
	assert.InDelta(t, 1.0, s.Gyro.X, 1e-9)
	assert.InDelta(t, -2.0, s.Gyro.Y, 1e-9)
	assert.InDelta(t, 35.0, s.TempC, 0.01)
}

func TestWatchdogResetsExactlyOncePerThreshold(t *testing.T) {
	w := NewWatchdog(DefaultZeroThreshold)
	resets := 0
	for range DefaultZeroThreshold {
		if w.Observe(0) {
			resets++
		}
	}
	assert.Equal(t, 1, resets)
	assert.Equal(t, Degraded, w.State())
	assert.Zero(t, w.Zeros())

	for range DefaultZeroThreshold - 1 {
		assert.False(t, w.Observe(0))
	}
	assert.Equal(t, 1, resets)
}

func TestWatchdogNonZeroClearsCounter(t *testing.T) {
	w := NewWatchdog(DefaultZeroThreshold)
	for range 49 {
		require.False(t, w.Observe(0))
	}
	assert.False(t, w.Observe(7))
	assert.Zero(t, w.Zeros())
	assert.Equal(t, Healthy, w.State())

	for range 49 {
		require.False(t, w.Observe(0))
	}
	assert.True(t, w.Observe(0))
	assert.False(t, w.Observe(-3))
	assert.Equal(t, Healthy, w.State())
}

func TestAHRSLevelGivesZeroLinearAccel(t *testing.T) {
	a := NewAHRS(0.1)
	s := flat.Scaled()
	for range 20 {
		a.Update(s.Gyro, s.Accel)
	}
	o := a.Orientation()
	assert.InDelta(t, 0, o.Roll, 1e-6)
	assert.InDelta(t, 0, o.Pitch, 1e-6)

	earth := a.EarthAccel(s.Accel)
	assert.InDelta(t, 0, earth.X, 1e-9)
	assert.InDelta(t, 0, earth.Z, 1e-9)
	assert.Zero(t, Value(earth))
}

func TestAHRSSeedsFromGravity(t *testing.T) {
	a := NewAHRS(0.1)
	// Rolled 90°: gravity along +Y.
	a.Update(Vec3{}, Vec3{Y: 1})
	assert.InDelta(t, 90, a.Orientation().Roll, 1e-6)
	a.ClearBias()
	assert.InDelta(t, 90, a.Orientation().Roll, 1e-6)
}

func TestAHRSDoesNotSeedFromShake(t *testing.T) {
	a := NewAHRS(0.1)
	// 1.41 g is gravity plus motion; the attitude stays level.
	a.Update(Vec3{}, Vec3{X: 1, Z: 1})
	assert.Equal(t, [4]float64{1, 0, 0, 0}, a.Q)
	assert.InDelta(t, 1, a.EarthAccel(Vec3{X: 1, Z: 1}).X, 1e-9)

	a.Update(Vec3{}, Vec3{Z: 1})
	o := a.Orientation()
	assert.InDelta(t, 0, o.Roll, 1e-6)
	assert.InDelta(t, 0, o.Pitch, 1e-6)
}

func TestAHRSIntegratesGyroWithoutAccel(t *testing.T) {
	a := NewAHRS(0.1)
	a.Update(Vec3{}, Vec3{Z: 1})
	for range 10 {
		a.Update(Vec3{Z: 90}, Vec3{})
	}
	assert.InDelta(t, 90, a.Orientation().Yaw, 1)
}

func TestValueZeroForStalledSensor(t *testing.T) {
	a := NewAHRS(0.1)
	assert.Zero(t, Value(a.EarthAccel(Vec3{})))
	assert.Zero(t, Value(Vec3{X: math.NaN()}))
	assert.Equal(t, event.MaxValue, Value(Vec3{X: 500}))
}

func TestIntegratorStalledSensorTriggersOneReset(t *testing.T) {
	sensor := &scriptedSensor{readings: []Reading{stalled}}
	in := NewIntegrator(sensor, Config{ZeroThreshold: DefaultZeroThreshold, TriggerThreshold: DefaultTriggerThreshold}, nil)

	for range DefaultZeroThreshold {
		_, ok, err := in.Step()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, sensor.resets)
	st := in.Status()
	assert.Equal(t, Degraded, st.Health)
	assert.EqualValues(t, 1, st.Resets)
}

func TestIntegratorEmitsOnShake(t *testing.T) {
	shake := Reading{Accel: [3]int16{16384, 0, 16384}}
	sensor := &scriptedSensor{readings: []Reading{flat, flat, shake}}
	in := NewIntegrator(sensor, Config{ZeroThreshold: DefaultZeroThreshold, TriggerThreshold: DefaultTriggerThreshold}, nil)

	for range 2 {
		_, ok, err := in.Step()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ev, ok, err := in.Step()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, event.Motion, ev.Axis)
	assert.Greater(t, int(ev.Value), DefaultTriggerThreshold)
	assert.Equal(t, int(ev.Value), in.Status().LastValue)
}

func TestIntegratorShakeAfterStallReset(t *testing.T) {
	shake := Reading{Accel: [3]int16{16384, 0, 16384}}
	sensor := &scriptedSensor{readings: []Reading{stalled, stalled, stalled, shake, flat}}
	in := NewIntegrator(sensor, Config{ZeroThreshold: 3, TriggerThreshold: DefaultTriggerThreshold}, nil)

	for range 3 {
		_, ok, err := in.Step()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	require.Equal(t, 1, sensor.resets)

	ev, ok, err := in.Step()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, int(ev.Value), DefaultTriggerThreshold)

	for range 10 {
		_, ok, err := in.Step()
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestIntegratorKeepsAttitudeAcrossReset(t *testing.T) {
	shake := Reading{Accel: [3]int16{16384, 0, 16384}}
	// Every flat step reads zero motion, so a threshold of 1 resets each time.
	sensor := &scriptedSensor{readings: []Reading{flat, flat, flat, shake, flat}}
	in := NewIntegrator(sensor, Config{ZeroThreshold: 1, TriggerThreshold: DefaultTriggerThreshold}, nil)

	for range 3 {
		_, ok, err := in.Step()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 3, sensor.resets)

	ev, ok, err := in.Step()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Positive(t, ev.Value)

	for range 10 {
		_, ok, err := in.Step()
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestIntegratorSmallMotionIsNotEmitted(t *testing.T) {
	nudge := Reading{Accel: [3]int16{4096, 0, 16384}}
	sensor := &scriptedSensor{readings: []Reading{flat, nudge}}
	in := NewIntegrator(sensor, Config{ZeroThreshold: DefaultZeroThreshold, TriggerThreshold: DefaultTriggerThreshold}, nil)

	_, _, err := in.Step()
	require.NoError(t, err)
	_, ok, err := in.Step()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotZero(t, in.Status().LastValue)
}

func TestIntegratorPropagatesReadError(t *testing.T) {
	sensor := &scriptedSensor{err: errors.New("i2c nack")}
	in := NewIntegrator(sensor, Config{ZeroThreshold: 1}, nil)
	_, _, err := in.Step()
	require.Error(t, err)
	assert.Zero(t, sensor.resets)
}
