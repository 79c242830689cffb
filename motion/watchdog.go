package motion

// DefaultZeroThreshold is the number of consecutive zero motion values
// after which the sensor is considered stalled.
const DefaultZeroThreshold = 50

// Health is the watchdog state.
type Health uint8

const (
	Healthy Health = iota
	Degraded
)

func (h Health) String() string {
	if h == Degraded {
		return "degraded"
	}
	return "healthy"
}

// Watchdog detects a sensor that has silently stopped updating by counting
// consecutive zero motion values.
//
// Reaching Threshold moves it to Degraded and asks for a reset, after which
// the counter starts again from zero. The first non-zero value returns it to
// Healthy.
type Watchdog struct {
	Threshold int

	zeros  int
	state  Health
	resets uint32
}

// NewWatchdog creates a Healthy watchdog.
func NewWatchdog(threshold int) *Watchdog {
	return &Watchdog{Threshold: max(1, threshold)}
}

// Observe records one motion value and reports whether a sensor reset is
// due now.
func (w *Watchdog) Observe(v int) bool {
	if v != 0 {
		w.zeros = 0
		w.state = Healthy
		return false
	}
	w.zeros++
	if w.zeros < w.Threshold {
		return false
	}
	w.zeros = 0
	w.state = Degraded
	w.resets++
	return true
}

// Zeros returns the current consecutive-zero count.
func (w *Watchdog) Zeros() int { return w.zeros }

// State returns the current health.
func (w *Watchdog) State() Health { return w.state }

// Resets returns how many resets have been requested.
func (w *Watchdog) Resets() uint32 { return w.resets }
