// Package sim provides synthetic peripherals so the pipeline can run on a
// machine without the controller hardware attached.
package sim

import (
	"bytes"
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/strumpad/strumpad/axis"
	"github.com/strumpad/strumpad/buttons"
	"github.com/strumpad/strumpad/event"
	"github.com/strumpad/strumpad/frame"
	"github.com/strumpad/strumpad/motion"
)

// Stick is a joystick that rests at the midpoint unless deflected.
type Stick struct {
	mu     sync.Mutex
	values [2]uint16
	noise  int
	rnd    *rand.Rand
}

// NewStick creates a centred stick with ±noise counts of jitter.
func NewStick(noise int, seed uint64) *Stick {
	return &Stick{
		values: [2]uint16{axis.Midpoint, axis.Midpoint},
		noise:  noise,
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Set holds axis at raw.
func (s *Stick) Set(a event.AxisID, raw uint16) {
	if a > event.Y {
		return
	}
	s.mu.Lock()
	s.values[a] = raw
	s.mu.Unlock()
}

// Sample implements axis.Sampler.
func (s *Stick) Sample(a event.AxisID) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a > event.Y {
		return axis.Midpoint, nil
	}
	v := int(s.values[a])
	if s.noise > 0 {
		v += s.rnd.IntN(2*s.noise+1) - s.noise
	}
	return uint16(max(0, min(axis.RawMax, v))), nil
}

// IMU is a motion sensor resting flat. It can be told to stall, after which
// it reads all zeros until the next Reset.
type IMU struct {
	mu      sync.Mutex
	rest    motion.Reading
	pending []motion.Reading
	stalled bool
	resets  int
}

// NewIMU creates a sensor lying flat at 25 °C.
func NewIMU() *IMU {
	return &IMU{rest: motion.Reading{
		Accel: [3]int16{0, 0, motion.AccelLSBPerG},
		Temp:  rawTemp(25),
	}}
}

func rawTemp(c float64) int16 {
	return int16((c - motion.TempOffsetC) * motion.TempLSBPerC)
}

// Queue schedules readings to be returned before the resting one.
func (m *IMU) Queue(r ...motion.Reading) {
	m.mu.Lock()
	m.pending = append(m.pending, r...)
	m.mu.Unlock()
}

// Shake queues a strong impulse along X.
func (m *IMU) Shake() {
	r := m.rest
	r.Accel[0] = motion.AccelLSBPerG
	m.Queue(r)
}

// Stall makes every following read return zeros until Reset.
func (m *IMU) Stall() {
	m.mu.Lock()
	m.stalled = true
	m.mu.Unlock()
}

// Read implements motion.Sensor.
func (m *IMU) Read() (motion.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stalled {
		return motion.Reading{}, nil
	}
	if len(m.pending) > 0 {
		r := m.pending[0]
		m.pending = m.pending[1:]
		return r, nil
	}
	return m.rest, nil
}

// Reset implements motion.Sensor.
func (m *IMU) Reset() error {
	m.mu.Lock()
	m.stalled = false
	m.resets++
	m.mu.Unlock()
	return nil
}

// Resets returns how many times Reset was called.
func (m *IMU) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Port is an in-memory serial port. With a non-zero room it reports
// frame.ErrTxFull once that many bytes are pending, until Drain is called.
type Port struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	room int
	held int
}

// NewPort creates a Port; room 0 means unbounded.
func NewPort(room int) *Port {
	return &Port{room: room}
}

// WriteByte implements frame.ByteWriter.
func (p *Port) WriteByte(c byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.room > 0 && p.held >= p.room {
		return frame.ErrTxFull
	}
	p.held++
	return p.buf.WriteByte(c)
}

// Drain marks every pending byte as sent.
func (p *Port) Drain() {
	p.mu.Lock()
	p.held = 0
	p.mu.Unlock()
}

// Bytes returns a copy of everything written so far.
func (p *Port) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.buf.Bytes())
}

// Frames decodes everything written so far with layout l.
func (p *Port) Frames(l frame.Layout) ([]event.AxisEvent, error) {
	b := p.Bytes()
	out := make([]event.AxisEvent, 0, len(b)/frame.Size)
	for len(b) >= frame.Size {
		ev, err := frame.Decode(l, [frame.Size]byte(b[:frame.Size]))
		if err != nil {
			return out, err
		}
		out = append(out, ev)
		b = b[frame.Size:]
	}
	return out, nil
}

// Strum presses each button in pattern for hold, one after another, until
// ctx is done.
func Strum(ctx context.Context, in *buttons.Inputs, pattern []buttons.ButtonID, hold time.Duration) {
	if len(pattern) == 0 {
		return
	}
	t := time.NewTimer(hold)
	defer t.Stop()
	for i := 0; ; i++ {
		id := pattern[i%len(pattern)]
		in.Edge(id, true)
		select {
		case <-ctx.Done():
			in.Edge(id, false)
			return
		case <-t.C:
		}
		in.Edge(id, false)
		t.Reset(hold)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		t.Reset(hold)
	}
}
