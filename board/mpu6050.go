package board

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/strumpad/strumpad/motion"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
)

// resetSettle is how long the chip needs after a device reset.
const resetSettle = 100 * time.Millisecond

// ErrSettling is returned by Read while the chip recovers from a reset.
var ErrSettling = errors.New("mpu6050: settling after reset")

// MPU6050 is an MPU-6050 on an I²C bus.
type MPU6050 struct {
	regs mmr.Dev8
	now  func() time.Time

	// resetAt is set by Reset and cleared once the chip is configured again.
	resetAt time.Time
}

// block mirrors the register block starting at ACCEL_XOUT_H.
type block struct {
	AX, AY, AZ int16
	Temp       int16
	GX, GY, GZ int16
}

// NewMPU6050 checks the chip identity, wakes it up and selects the ranges
// the motion package converts for.
func NewMPU6050(bus i2c.Bus, addr uint16) (*MPU6050, error) {
	m := &MPU6050{
		regs: mmr.Dev8{Conn: &i2c.Dev{Bus: bus, Addr: addr}, Order: binary.BigEndian},
		now:  time.Now,
	}
	id, err := m.regs.ReadUint8(motion.RegWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("mpu6050: reading WHO_AM_I: %w", err)
	}
	if id != motion.WhoAmIValue {
		return nil, fmt.Errorf("mpu6050: unexpected WHO_AM_I 0x%02x", id)
	}
	if err := m.configure(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MPU6050) configure() error {
	for _, w := range []struct {
		reg  uint8
		val  uint8
		name string
	}{
		{motion.RegPwrMgmt1, motion.PwrWake, "wake"},
		{motion.RegSmplrtDiv, motion.SampleRateDiv, "sample rate"},
		{motion.RegConfig, motion.DLPF44Hz, "filter"},
		{motion.RegGyroConfig, motion.GyroFS250, "gyro range"},
		{motion.RegAccelConfig, motion.AccelFS2G, "accel range"},
	} {
		if err := m.regs.WriteUint8(w.reg, w.val); err != nil {
			return fmt.Errorf("mpu6050: %s: %w", w.name, err)
		}
	}
	return nil
}

// Read implements motion.Sensor. After a Reset it returns ErrSettling until
// the chip has had time to recover, then configures it again before the
// first read.
func (m *MPU6050) Read() (motion.Reading, error) {
	if !m.resetAt.IsZero() {
		if m.now().Sub(m.resetAt) < resetSettle {
			return motion.Reading{}, ErrSettling
		}
		if err := m.configure(); err != nil {
			return motion.Reading{}, err
		}
		m.resetAt = time.Time{}
	}

	var b block
	if err := m.regs.ReadStruct(motion.RegAccelXOutH, &b); err != nil {
		return motion.Reading{}, fmt.Errorf("mpu6050: %w", err)
	}
	return motion.Reading{
		Accel: [3]int16{b.AX, b.AY, b.AZ},
		Gyro:  [3]int16{b.GX, b.GY, b.GZ},
		Temp:  b.Temp,
	}, nil
}

// Reset implements motion.Sensor. It issues a device reset and returns
// without waiting; Read wakes the chip once it has settled.
func (m *MPU6050) Reset() error {
	if err := m.regs.WriteUint8(motion.RegPwrMgmt1, motion.PwrDeviceReset); err != nil {
		return fmt.Errorf("mpu6050: reset: %w", err)
	}
	m.resetAt = m.now()
	return nil
}
