package axis

// Window is a fixed-capacity ring of raw samples. It starts zero-seeded and
// full, so the mean ramps up over the first N samples.
type Window struct {
	data []uint16
	pos  int
}

// NewWindow creates a zero-seeded Window with the given capacity.
func NewWindow(size int) *Window {
	return &Window{data: make([]uint16, max(1, size))}
}

// Push overwrites the oldest sample with v.
func (w *Window) Push(v uint16) {
	w.data[w.pos] = v
	w.pos++
	if w.pos >= len(w.data) {
		w.pos = 0
	}
}

// Len returns the window capacity.
func (w *Window) Len() int {
	return len(w.data)
}

// Mean returns the truncated arithmetic mean of every slot.
func (w *Window) Mean() uint16 {
	var sum uint32
	for _, v := range w.data {
		sum += uint32(v)
	}
	return uint16(sum / uint32(len(w.data)))
}

// Slice returns the contents oldest first.
func (w *Window) Slice() []uint16 {
	out := make([]uint16, len(w.data))
	copy(out, w.data[w.pos:])
	copy(out[len(w.data)-w.pos:], w.data[:w.pos])
	return out
}
