// Package frame serialises axis events into fixed 4-byte wire frames and
// writes them to the serial link.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/strumpad/strumpad/event"
)

// Wire constants.
const (
	Size   = 4
	Marker = 0xFF
)

// Layout selects the byte order of a frame. A deployment uses exactly one
// layout; the host decoder does not accept both.
type Layout uint8

const (
	// AxisFirst is [axis, low, high, 0xFF]. This is the default.
	AxisFirst Layout = iota
	// MarkerFirst is [0xFF, axis, low, high].
	MarkerFirst
)

// Errors returned by Decode and ParseLayout.
var (
	ErrMarker = errors.New("frame: missing 0xFF marker")
	ErrAxis   = errors.New("frame: unknown axis")
	ErrLayout = errors.New("frame: unknown layout")
)

func (l Layout) String() string {
	switch l {
	case AxisFirst:
		return "axis-first"
	case MarkerFirst:
		return "marker-first"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// ParseLayout resolves a layout name as returned by String.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "axis-first", "a", "A":
		return AxisFirst, nil
	case "marker-first", "b", "B":
		return MarkerFirst, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrLayout, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	if l > MarkerFirst {
		return nil, fmt.Errorf("%w: %d", ErrLayout, uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layout) UnmarshalText(b []byte) error {
	v, err := ParseLayout(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Encode serialises ev. The value is written as a little-endian int16.
func Encode(l Layout, ev event.AxisEvent) [Size]byte {
	var f [Size]byte
	switch l {
	case MarkerFirst:
		f[0] = Marker
		f[1] = byte(ev.Axis)
		binary.LittleEndian.PutUint16(f[2:], uint16(ev.Value))
	default:
		f[0] = byte(ev.Axis)
		binary.LittleEndian.PutUint16(f[1:], uint16(ev.Value))
		f[3] = Marker
	}
	return f
}

// Decode parses a frame produced by Encode with the same layout.
func Decode(l Layout, f [Size]byte) (event.AxisEvent, error) {
	var axis byte
	var value uint16
	switch l {
	case MarkerFirst:
		if f[0] != Marker {
			return event.AxisEvent{}, ErrMarker
		}
		axis = f[1]
		value = binary.LittleEndian.Uint16(f[2:])
	default:
		if f[3] != Marker {
			return event.AxisEvent{}, ErrMarker
		}
		axis = f[0]
		value = binary.LittleEndian.Uint16(f[1:])
	}
	id := event.AxisID(axis)
	if !id.Valid() {
		return event.AxisEvent{}, fmt.Errorf("%w: %d", ErrAxis, axis)
	}
	return event.AxisEvent{Axis: id, Value: int16(value)}, nil
}
