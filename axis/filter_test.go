package axis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strumpad/strumpad/event"
)

func TestWindowZeroSeededAndCircular(t *testing.T) {
	w := NewWindow(5)
	assert.Equal(t, []uint16{0, 0, 0, 0, 0}, w.Slice())

	for _, v := range []uint16{10, 20, 30, 40, 50, 60} {
		w.Push(v)
	}
	assert.Equal(t, []uint16{20, 30, 40, 50, 60}, w.Slice())
	assert.EqualValues(t, 40, w.Mean())
}

func TestConvertRangeAndDeadZone(t *testing.T) {
	assert.Equal(t, -255, Convert(0, DefaultDeadZone))
	assert.Equal(t, 256, Convert(RawMax, DefaultDeadZone))
	assert.Equal(t, 0, Convert(Midpoint, DefaultDeadZone))

	for raw := 0; raw <= RawMax; raw++ {
		v := Convert(uint16(raw), DefaultDeadZone)
		assert.GreaterOrEqual(t, v, -255)
		assert.LessOrEqual(t, v, 256)
		if v != 0 {
			assert.False(t, v > -30 && v < 30, "raw %d produced %d inside the dead zone", raw, v)
		}
	}
}

func TestFilterConstantInputConverges(t *testing.T) {
	f := NewFilter(event.X, DefaultWindow, DefaultDeadZone)
	raw := uint16(Midpoint + 100*Scale)

	var ev event.AxisEvent
	var ok bool
	for range DefaultWindow {
		ev, ok = f.Push(raw)
	}
	require.True(t, ok)
	assert.Equal(t, event.AxisEvent{Axis: event.X, Value: 100}, ev)
}

func TestFilterDeadZoneBorders(t *testing.T) {
	cases := []struct {
		name   string
		scaled int
		emit   bool
	}{
		{"plus 29", 29, false},
		{"minus 29", -29, false},
		{"plus 31", 31, true},
		{"minus 31", -31, true},
		{"plus 30", 30, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFilter(event.Y, DefaultWindow, DefaultDeadZone)
			raw := uint16(Midpoint + tc.scaled*Scale)
			var ev event.AxisEvent
			var ok bool
			for range DefaultWindow {
				ev, ok = f.Push(raw)
			}
			assert.Equal(t, tc.emit, ok)
			if tc.emit {
				assert.EqualValues(t, tc.scaled, ev.Value)
			}
		})
	}
}

func TestFilterRampsUpFromZeroSeed(t *testing.T) {
	f := NewFilter(event.X, DefaultWindow, DefaultDeadZone)

	// First sample at midpoint averages with four zero slots.
	ev, ok := f.Push(Midpoint)
	require.True(t, ok)
	assert.EqualValues(t, (Midpoint/5-Midpoint)/Scale, ev.Value)

	for range DefaultWindow - 1 {
		_, ok = f.Push(Midpoint)
	}
	assert.False(t, ok)
	assert.Zero(t, f.Last())
}

func TestFilterClampsRawAboveRange(t *testing.T) {
	f := NewFilter(event.X, 1, DefaultDeadZone)
	ev, ok := f.Push(65535)
	require.True(t, ok)
	assert.EqualValues(t, 256, ev.Value)
}

type fakeSampler struct {
	values []uint16
	err    error
}

func (s *fakeSampler) Sample(event.AxisID) (uint16, error) {
	if s.err != nil {
		return 0, s.err
	}
	v := s.values[0]
	if len(s.values) > 1 {
		s.values = s.values[1:]
	}
	return v, nil
}

type recordingSink struct {
	events []event.AxisEvent
}

func (r *recordingSink) Enqueue(ev event.AxisEvent) bool {
	r.events = append(r.events, ev)
	return true
}

func TestProducerSuppressesZeroEvents(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(&fakeSampler{values: []uint16{Midpoint}}, NewFilter(event.X, 1, DefaultDeadZone), sink, nil)
	for range 10 {
		p.Tick()
	}
	assert.Empty(t, sink.events)
}

func TestProducerForwardsDeflection(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(&fakeSampler{values: []uint16{0}}, NewFilter(event.Y, 1, DefaultDeadZone), sink, nil)
	p.Tick()
	p.Tick()
	require.Len(t, sink.events, 2)
	assert.Equal(t, event.AxisEvent{Axis: event.Y, Value: -255}, sink.events[0])
}

func TestProducerSkipsReadErrors(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(&fakeSampler{err: errors.New("adc busy")}, NewFilter(event.X, 1, DefaultDeadZone), sink, nil)
	p.Tick()
	assert.Empty(t, sink.events)
}
