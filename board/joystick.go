package board

import (
	"fmt"

	"github.com/strumpad/strumpad/axis"
	"github.com/strumpad/strumpad/event"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// Supply is the potentiometer supply voltage, the top of the raw range.
const Supply = 3300 * physic.MilliVolt

type adcPin interface {
	Read() (analog.Sample, error)
}

// Joystick reads the two stick potentiometers through an ADS1115.
type Joystick struct {
	pins [2]adcPin
}

// NewJoystick opens X on channel 0 and Y on channel 1.
func NewJoystick(bus i2c.Bus, addr uint16) (*Joystick, error) {
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, fmt.Errorf("ads1115: %w", err)
	}
	var j Joystick
	for i, ch := range []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1} {
		p, err := dev.PinForChannel(ch, Supply, 860*physic.Hertz, ads1x15.SaveEnergy)
		if err != nil {
			return nil, fmt.Errorf("ads1115 channel %d: %w", i, err)
		}
		j.pins[i] = p
	}
	return &j, nil
}

// Sample implements axis.Sampler.
func (j *Joystick) Sample(a event.AxisID) (uint16, error) {
	if a > event.Y {
		return 0, fmt.Errorf("joystick: no channel for axis %s", a)
	}
	s, err := j.pins[a].Read()
	if err != nil {
		return 0, err
	}
	return Rescale(s.V, Supply), nil
}

// Rescale maps a voltage in [0, full] onto [0, axis.RawMax].
func Rescale(v, full physic.ElectricPotential) uint16 {
	if v <= 0 || full <= 0 {
		return 0
	}
	if v >= full {
		return axis.RawMax
	}
	return uint16(int64(v) * axis.RawMax / int64(full))
}
