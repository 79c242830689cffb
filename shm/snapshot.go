// Package shm provides the shared memory status region written by the
// device daemon and read by diagnostic displays.
package shm

// Capability bits stored in Snapshot.Caps.
const (
	CapAnalogAxes uint8 = 1 << iota
	CapMotionSensor
	CapDiagnosticDisplay
)

// Snapshot is one published view of the pipeline.
type Snapshot struct {
	Enqueued uint64
	Dropped  uint64
	Frames   uint64
	Failed   uint64
	Resets   uint32
	Health   uint8
	Buttons  uint8
	Motion   int16
	TempC    float32
	Roll     float32
	Pitch    float32
	Yaw      float32
	Caps     uint8
}
