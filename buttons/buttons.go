// Package buttons tracks the raw pressed/released flags of the controller
// buttons and reports every change as one diagnostic text line.
package buttons

import (
	"fmt"
	"sync/atomic"
)

// ButtonID identifies a physical button.
type ButtonID uint8

// The five fret buttons plus the joystick click.
const (
	Verde ButtonID = iota
	Azul
	Amarelo
	Vermelho
	Laranja
	Click

	NumButtons = 6
)

var tokens = [NumButtons]string{
	Verde:    "A",
	Azul:     "S",
	Amarelo:  "J",
	Vermelho: "K",
	Laranja:  "L",
	Click:    "CLICK",
}

var names = [NumButtons]string{
	Verde:    "verde",
	Azul:     "azul",
	Amarelo:  "amarelo",
	Vermelho: "vermelho",
	Laranja:  "laranja",
	Click:    "click",
}

// Token returns the short label used on the diagnostic line.
func (b ButtonID) Token() string {
	if b >= NumButtons {
		return "?"
	}
	return tokens[b]
}

func (b ButtonID) String() string {
	if b >= NumButtons {
		return fmt.Sprintf("ButtonID(%d)", uint8(b))
	}
	return names[b]
}

// ParseButton resolves a button name as returned by String.
func ParseButton(name string) (ButtonID, error) {
	for i, n := range names {
		if n == name {
			return ButtonID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// All returns every ButtonID in order.
func All() []ButtonID {
	ids := make([]ButtonID, NumButtons)
	for i := range ids {
		ids[i] = ButtonID(i)
	}
	return ids
}

// Inputs holds the raw flag of each button. Each flag is written from the
// edge handler and read by the poller; flags are independent of each other.
type Inputs struct {
	flags [NumButtons]atomic.Bool
}

// Edge records an edge notification. Buttons are active low, so a falling
// edge means pressed and a rising edge means released.
func (in *Inputs) Edge(id ButtonID, falling bool) {
	in.Set(id, falling)
}

// Set stores the raw flag for id.
func (in *Inputs) Set(id ButtonID, pressed bool) {
	if id < NumButtons {
		in.flags[id].Store(pressed)
	}
}

// Pressed returns the raw flag for id.
func (in *Inputs) Pressed(id ButtonID) bool {
	if id >= NumButtons {
		return false
	}
	return in.flags[id].Load()
}

// Snapshot loads every flag once.
func (in *Inputs) Snapshot() State {
	var s State
	for i := range s {
		s[i] = in.flags[i].Load()
	}
	return s
}

// State is the pressed flag of every button at one instant.
type State [NumButtons]bool

// Mask packs s into a bit mask with bit i set when ButtonID(i) is pressed.
func (s State) Mask() uint8 {
	var m uint8
	for i, p := range s {
		if p {
			m |= 1 << i
		}
	}
	return m
}
