// Package event defines the typed axis events produced by the input stages
// and the bounded multiplexer that hands them to the frame transmitter.
package event

import "fmt"

// AxisID tags every numeric event with the channel it belongs to.
type AxisID uint8

// Axis identifiers. The numeric values are sent on the wire.
const (
	X AxisID = iota
	Y
	Motion
)

// Value limits for AxisEvent.Value.
const (
	MinValue = -2047
	MaxValue = 2047
)

func (a AxisID) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Motion:
		return "Motion"
	default:
		return fmt.Sprintf("AxisID(%d)", uint8(a))
	}
}

// Valid reports whether a is a known axis.
func (a AxisID) Valid() bool {
	return a <= Motion
}

// AxisEvent is one non-zero reading from an axis producer.
type AxisEvent struct {
	Axis  AxisID
	Value int16
}

func (e AxisEvent) String() string {
	return fmt.Sprintf("%s:%d", e.Axis, e.Value)
}

// Clamp limits v to [MinValue, MaxValue].
func Clamp(v int) int16 {
	return int16(max(MinValue, min(MaxValue, v)))
}

// Sink accepts events from a producer without blocking.
type Sink interface {
	Enqueue(ev AxisEvent) bool
}
