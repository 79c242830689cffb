package board

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/strumpad/strumpad/buttons"
	"periph.io/x/conn/v3/gpio"
)

// Debounce is how long a level must be stable before it is recorded.
const Debounce = 10 * time.Millisecond

// idleWait bounds each wait so watchers notice cancellation.
const idleWait = 100 * time.Millisecond

// ResolveButtons maps the configured button names to input pins using
// lookup, typically gpioreg.ByName.
func ResolveButtons(names map[string]string, lookup func(string) gpio.PinIO) (map[buttons.ButtonID]gpio.PinIn, error) {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pins := make(map[buttons.ButtonID]gpio.PinIn, len(names))
	for _, k := range keys {
		id, err := buttons.ParseButton(k)
		if err != nil {
			return nil, err
		}
		p := lookup(names[k])
		if p == nil {
			return nil, fmt.Errorf("button %s: no pin named %q", k, names[k])
		}
		pins[id] = p
	}
	return pins, nil
}

// WatchButtons configures each pin as a pulled-up input with edge detection
// and starts one watcher per pin that records debounced levels in in. The
// watchers exit when ctx is done.
func WatchButtons(ctx context.Context, pins map[buttons.ButtonID]gpio.PinIn, in *buttons.Inputs) error {
	for id, p := range pins {
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return fmt.Errorf("button %s on %s: %w", id, p, err)
		}
	}
	for id, p := range pins {
		go watch(ctx, id, p, in)
	}
	return nil
}

func watch(ctx context.Context, id buttons.ButtonID, p gpio.PinIn, in *buttons.Inputs) {
	pressed := p.Read() == gpio.Low
	in.Set(id, pressed)
	newPressed := pressed

	for ctx.Err() == nil {
		// Only wait the debounce period while a change is pending.
		timeout := idleWait
		if newPressed != pressed {
			timeout = Debounce
		}
		if p.WaitForEdge(timeout) {
			newPressed = p.Read() == gpio.Low
			continue
		}
		if newPressed != pressed {
			pressed = newPressed
			in.Edge(id, pressed)
		}
	}
}
