// Package axis turns raw joystick ADC samples into dead-zoned axis events
// using a short moving-average window.
package axis

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/strumpad/strumpad/event"
)

// Raw ADC domain and the fixed mapping onto the signed output range. The
// host decoder depends on Midpoint and Scale staying exactly as they are.
const (
	RawMax   = 4095
	Midpoint = 2047
	Scale    = 8

	DefaultWindow   = 5
	DefaultDeadZone = 30
)

// Sampler reads one raw sample in [0, RawMax] for an axis.
type Sampler interface {
	Sample(axis event.AxisID) (uint16, error)
}

// Convert centres a filtered sample on Midpoint, divides by Scale and
// forces everything strictly inside (-deadZone, deadZone) to zero.
func Convert(filtered uint16, deadZone int) int {
	v := (int(filtered) - Midpoint) / Scale
	if v > -deadZone && v < deadZone {
		return 0
	}
	return v
}

// Filter is the per-axis moving-average and dead-zone stage. It is owned by
// a single producer and is not safe for concurrent use.
type Filter struct {
	Axis     event.AxisID
	DeadZone int

	window *Window
	last   int
}

// NewFilter creates a Filter with a zero-seeded window of the given size.
func NewFilter(axis event.AxisID, windowSize, deadZone int) *Filter {
	return &Filter{
		Axis:     axis,
		DeadZone: deadZone,
		window:   NewWindow(windowSize),
	}
}

// Push feeds one raw sample. It returns the event to emit and true, or
// false when the filtered value falls inside the dead zone.
func (f *Filter) Push(raw uint16) (event.AxisEvent, bool) {
	f.window.Push(min(raw, RawMax))
	f.last = Convert(f.window.Mean(), f.DeadZone)
	if f.last == 0 {
		return event.AxisEvent{}, false
	}
	return event.AxisEvent{Axis: f.Axis, Value: event.Clamp(f.last)}, true
}

// Last returns the most recent filtered value, including zeros.
func (f *Filter) Last() int {
	return f.last
}

// Producer samples one axis on a fixed period and forwards non-zero
// results to a sink.
type Producer struct {
	sampler Sampler
	filter  *Filter
	sink    event.Sink
	logger  *log.Logger
}

// NewProducer wires a sampler, a filter and a sink together.
func NewProducer(sampler Sampler, filter *Filter, sink event.Sink, logger *log.Logger) *Producer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Producer{sampler: sampler, filter: filter, sink: sink, logger: logger}
}

// Tick takes one sample and enqueues the result if it is non-zero. Read
// errors skip the tick.
func (p *Producer) Tick() {
	raw, err := p.sampler.Sample(p.filter.Axis)
	if err != nil {
		p.logger.Debug("axis sample failed", "axis", p.filter.Axis, "err", err)
		return
	}
	if ev, ok := p.filter.Push(raw); ok {
		p.sink.Enqueue(ev)
	}
}

// Run ticks every period until ctx is done.
func (p *Producer) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		p.Tick()
	}
}
