package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/strumpad/strumpad/event"
)

// ErrTxFull is returned by a ByteWriter whose output buffer has no room.
// The transmitter waits RetryDelay and retries the same byte.
var ErrTxFull = errors.New("frame: transmit buffer full")

// RetryDelay is how long the transmitter waits before retrying a byte the
// writer had no room for.
const RetryDelay = 500 * time.Microsecond

// ByteWriter is the serial output, one byte at a time.
type ByteWriter interface {
	WriteByte(c byte) error
}

// Source yields events for the transmitter.
type Source interface {
	Dequeue(ctx context.Context) (event.AxisEvent, error)
}

// Transmitter encodes one event at a time and writes its bytes in order.
// It holds no frame beyond the one being written.
type Transmitter struct {
	out    ByteWriter
	layout Layout
	logger *log.Logger

	frames atomic.Uint64
	failed atomic.Uint64
}

// NewTransmitter creates a Transmitter writing layout frames to out.
func NewTransmitter(out ByteWriter, layout Layout, logger *log.Logger) *Transmitter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Transmitter{out: out, layout: layout, logger: logger}
}

// Layout returns the configured wire layout.
func (t *Transmitter) Layout() Layout { return t.layout }

// Send encodes ev and writes the frame. While the writer reports a full
// buffer it retries the same byte every RetryDelay. A frame cut short by
// ctx counts as failed.
func (t *Transmitter) Send(ctx context.Context, ev event.AxisEvent) error {
	f := Encode(t.layout, ev)
	for i, b := range f {
		if err := t.putByte(ctx, b); err != nil {
			t.failed.Add(1)
			return fmt.Errorf("writing byte %d of %s: %w", i, ev, err)
		}
	}
	t.frames.Add(1)
	return nil
}

func (t *Transmitter) putByte(ctx context.Context, b byte) error {
	var timer *time.Timer
	for {
		err := t.out.WriteByte(b)
		if !errors.Is(err, ErrTxFull) {
			if timer != nil {
				timer.Stop()
			}
			return err
		}
		if timer == nil {
			timer = time.NewTimer(RetryDelay)
		} else {
			timer.Reset(RetryDelay)
		}
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Run dequeues and sends events until ctx is done. A failed write drops
// that frame; nothing is retried.
func (t *Transmitter) Run(ctx context.Context, src Source) error {
	for {
		ev, err := src.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := t.Send(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Warn("frame dropped", "err", err)
		}
	}
}

// Frames returns the number of frames written completely.
func (t *Transmitter) Frames() uint64 { return t.frames.Load() }

// Failed returns the number of frames dropped on a write error.
func (t *Transmitter) Failed() uint64 { return t.failed.Load() }

// streamWriter adapts an io.Writer such as a serial port.
type streamWriter struct {
	w   io.Writer
	buf [1]byte
}

// Writer adapts w to a ByteWriter. A write that accepts nothing without an
// error is reported as ErrTxFull.
func Writer(w io.Writer) ByteWriter {
	if bw, ok := w.(ByteWriter); ok {
		return bw
	}
	return &streamWriter{w: w}
}

func (s *streamWriter) WriteByte(c byte) error {
	s.buf[0] = c
	n, err := s.w.Write(s.buf[:])
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTxFull
	}
	return nil
}
