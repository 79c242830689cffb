//go:build unix

package shm

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Region layout. All fields are little-endian.
//
//	[0..3]   update_count u32
//	[4..7]   pad
//	[8..23]  session uuid
//	[24..]   payload
const (
	Header      = 24
	PayloadSize = 64
	Size        = Header + PayloadSize

	NameStatus = "strumpad_status"
)

const (
	offEnqueued = Header + 0
	offDropped  = Header + 8
	offFrames   = Header + 16
	offFailed   = Header + 24
	offResets   = Header + 32
	offHealth   = Header + 36
	offButtons  = Header + 37
	offMotion   = Header + 38
	offTemp     = Header + 40
	offRoll     = Header + 44
	offPitch    = Header + 48
	offYaw      = Header + 52
	offCaps     = Header + 56
)

// Status is a mapped status region.
type Status struct {
	buf  []byte
	path string
	fd   int
}

// Path returns where the named region lives: /dev/shm on Linux, the temp
// directory elsewhere.
func Path(name string) string {
	if runtime.GOOS == "linux" {
		return filepath.Join("/dev/shm", name)
	}
	return filepath.Join(os.TempDir(), name)
}

// CreateStatus creates (or truncates) the named region and stamps it with a
// fresh session id.
func CreateStatus(name string) (*Status, error) {
	path := Path(name)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := unix.Ftruncate(fd, Size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate %s: %w", path, err)
	}

	buf, err := unix.Mmap(fd, 0, Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	clear(buf)
	session := uuid.New()
	copy(buf[8:Header], session[:])

	return &Status{buf: buf, path: path, fd: fd}, nil
}

// OpenStatus maps an existing region read-only.
func OpenStatus(name string) (*Status, error) {
	path := Path(name)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	buf, err := unix.Mmap(fd, 0, Size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &Status{buf: buf, path: path, fd: fd}, nil
}

// Session returns the id stamped by the writer that created the region.
func (s *Status) Session() uuid.UUID {
	var id uuid.UUID
	copy(id[:], s.buf[8:Header])
	return id
}

// Write stores snap and increments the update counter.
func (s *Status) Write(snap Snapshot) {
	b := s.buf
	binary.LittleEndian.PutUint64(b[offEnqueued:], snap.Enqueued)
	binary.LittleEndian.PutUint64(b[offDropped:], snap.Dropped)
	binary.LittleEndian.PutUint64(b[offFrames:], snap.Frames)
	binary.LittleEndian.PutUint64(b[offFailed:], snap.Failed)
	binary.LittleEndian.PutUint32(b[offResets:], snap.Resets)
	b[offHealth] = snap.Health
	b[offButtons] = snap.Buttons
	binary.LittleEndian.PutUint16(b[offMotion:], uint16(snap.Motion))
	binary.LittleEndian.PutUint32(b[offTemp:], math.Float32bits(snap.TempC))
	binary.LittleEndian.PutUint32(b[offRoll:], math.Float32bits(snap.Roll))
	binary.LittleEndian.PutUint32(b[offPitch:], math.Float32bits(snap.Pitch))
	binary.LittleEndian.PutUint32(b[offYaw:], math.Float32bits(snap.Yaw))
	b[offCaps] = snap.Caps

	cnt := binary.LittleEndian.Uint32(b[0:4])
	binary.LittleEndian.PutUint32(b[0:4], cnt+1)
}

// Read returns the snapshot if the counter changed since lastCount.
func (s *Status) Read(lastCount uint32) (Snapshot, uint32, bool) {
	b := s.buf
	cnt := binary.LittleEndian.Uint32(b[0:4])
	if cnt == lastCount {
		return Snapshot{}, cnt, false
	}
	return Snapshot{
		Enqueued: binary.LittleEndian.Uint64(b[offEnqueued:]),
		Dropped:  binary.LittleEndian.Uint64(b[offDropped:]),
		Frames:   binary.LittleEndian.Uint64(b[offFrames:]),
		Failed:   binary.LittleEndian.Uint64(b[offFailed:]),
		Resets:   binary.LittleEndian.Uint32(b[offResets:]),
		Health:   b[offHealth],
		Buttons:  b[offButtons],
		Motion:   int16(binary.LittleEndian.Uint16(b[offMotion:])),
		TempC:    math.Float32frombits(binary.LittleEndian.Uint32(b[offTemp:])),
		Roll:     math.Float32frombits(binary.LittleEndian.Uint32(b[offRoll:])),
		Pitch:    math.Float32frombits(binary.LittleEndian.Uint32(b[offPitch:])),
		Yaw:      math.Float32frombits(binary.LittleEndian.Uint32(b[offYaw:])),
		Caps:     b[offCaps],
	}, cnt, true
}

// Close unmaps and closes the region (does not unlink).
func (s *Status) Close() error {
	if err := unix.Munmap(s.buf); err != nil {
		return err
	}
	return unix.Close(s.fd)
}

// Unlink removes the region.
func (s *Status) Unlink() error {
	return unix.Unlink(s.path)
}
