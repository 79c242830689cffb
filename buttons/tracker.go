package buttons

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// DefaultPollPeriod is how often the tracker compares states.
const DefaultPollPeriod = 10 * time.Millisecond

// Transition is one reported change of a button.
type Transition struct {
	Button  ButtonID
	Pressed bool
}

// Line formats t as "<token>:<DOWN|UP>".
func (t Transition) Line() string {
	action := "UP"
	if t.Pressed {
		action = "DOWN"
	}
	return t.Button.Token() + ":" + action
}

// Tracker diffs the raw flags against the last reported state.
//
// Edges are already debounced before they reach Inputs, so the tracker only
// detects changes. If several edges land between two polls only the latest
// level is seen and the intermediate transitions are not reported.
type Tracker struct {
	inputs *Inputs
	sink   io.Writer
	last   State
	mask   atomic.Uint32
}

// NewTracker creates a Tracker that writes diagnostic lines to sink. Every
// button starts released.
func NewTracker(inputs *Inputs, sink io.Writer) *Tracker {
	if sink == nil {
		sink = io.Discard
	}
	return &Tracker{inputs: inputs, sink: sink}
}

// Poll reports every button whose flag differs from the last poll, in
// ButtonID order.
func (t *Tracker) Poll() ([]Transition, error) {
	cur := t.inputs.Snapshot()
	defer func() { t.mask.Store(uint32(t.last.Mask())) }()

	var out []Transition
	for i := range cur {
		if cur[i] == t.last[i] {
			continue
		}
		tr := Transition{Button: ButtonID(i), Pressed: cur[i]}
		t.last[i] = cur[i]
		out = append(out, tr)
		if _, err := fmt.Fprintln(t.sink, tr.Line()); err != nil {
			return out, fmt.Errorf("writing %s: %w", tr.Line(), err)
		}
	}
	return out, nil
}

// State returns the last reported state. It must be called from the
// goroutine that polls; other readers use Mask.
func (t *Tracker) State() State {
	return t.last
}

// Mask returns the last reported state as a bit mask. It is safe to call
// while Run is polling.
func (t *Tracker) Mask() uint8 {
	return uint8(t.mask.Load())
}

// Run polls every period until ctx is done. A failing sink does not stop
// polling; the error is passed to onErr when it is non-nil.
func (t *Tracker) Run(ctx context.Context, period time.Duration, onErr func(error)) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if _, err := t.Poll(); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
