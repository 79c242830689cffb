package motion

// MPU-6050 register map (subset used by the integrator).
const (
	DefaultAddr = 0x68

	RegSmplrtDiv   = 0x19
	RegConfig      = 0x1A
	RegGyroConfig  = 0x1B
	RegAccelConfig = 0x1C
	RegAccelXOutH  = 0x3B // start of the 14-byte data block
	RegTempOutH    = 0x41
	RegGyroXOutH   = 0x43
	RegPwrMgmt1    = 0x6B
	RegWhoAmI      = 0x75

	DataBlockLen = 14
	WhoAmIValue  = 0x68

	PwrDeviceReset = 0x80
	PwrWake        = 0x00

	SampleRateDiv = 9    // 1 kHz / (1+9) = 100 Hz
	DLPF44Hz      = 0x03 // CONFIG.DLPF_CFG
	GyroFS250     = 0x00 // ±250 °/s
	AccelFS2G     = 0x00 // ±2 g
)

// Full-scale conversion factors for the default ±250 °/s and ±2 g ranges.
const (
	GyroLSBPerDPS = 131.0
	AccelLSBPerG  = 16384.0
	TempLSBPerC   = 340.0
	TempOffsetC   = 36.53
)
