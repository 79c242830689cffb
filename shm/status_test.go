//go:build unix

package shm

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusWriteRead(t *testing.T) {
	name := fmt.Sprintf("strumpad_test_%d_%s", os.Getpid(), uuid.NewString()[:8])
	w, err := CreateStatus(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		w.Close()
		w.Unlink()
	})

	r, err := OpenStatus(name)
	require.NoError(t, err)
	defer r.Close()

	assert.NotEqual(t, uuid.Nil, w.Session())
	assert.Equal(t, w.Session(), r.Session())

	_, cnt, ok := r.Read(0)
	assert.False(t, ok)
	assert.Zero(t, cnt)

	want := Snapshot{
		Enqueued: 1000,
		Dropped:  3,
		Frames:   997,
		Failed:   1,
		Resets:   2,
		Health:   1,
		Buttons:  0b100001,
		Motion:   -75,
		TempC:    24.5,
		Roll:     10,
		Pitch:    -5.25,
		Yaw:      180,
		Caps:     CapAnalogAxes | CapMotionSensor,
	}
	w.Write(want)

	got, cnt, ok := r.Read(0)
	require.True(t, ok)
	assert.EqualValues(t, 1, cnt)
	assert.Equal(t, want, got)

	_, _, ok = r.Read(cnt)
	assert.False(t, ok)
}

func TestOpenStatusMissing(t *testing.T) {
	_, err := OpenStatus("strumpad_does_not_exist_" + uuid.NewString())
	assert.Error(t, err)
}
