package main

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/strumpad/strumpad/shm"
)

func TestAngleGauge(t *testing.T) {
	assert.Equal(t, "──┊─●─┊──", angleGauge(0, 180, 9))
	assert.Equal(t, "──┊─┼─┊─●", angleGauge(180, 180, 9))
	assert.Equal(t, "●─┊─┼─┊──", angleGauge(-400, 180, 9))
	assert.Equal(t, "──", angleGauge(10, 180, 2))
}

func TestVisLenIgnoresStyles(t *testing.T) {
	assert.Equal(t, 3, visLen(dim+"ab"+rst+"°"))
	assert.Equal(t, 0, visLen(bold+grn+rst))
}

func TestRenderBoxIsAligned(t *testing.T) {
	snap := shm.Snapshot{
		Caps:    shm.CapMotionSensor | shm.CapDiagnosticDisplay,
		Buttons: 0b101,
		TempC:   25,
		Roll:    -45,
		Pitch:   10,
		Yaw:     170,
		Motion:  -80,
		Dropped: 3,
	}
	h := history{size: width - 4}
	h.push(-80)
	out := render(snap, true, uuid.New(), time.Now(), &h)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Greater(t, len(lines), 10)
	for _, l := range lines {
		assert.Equal(t, width+2, visLen(l), "%q", l)
	}
}
