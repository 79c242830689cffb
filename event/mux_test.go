package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMuxRejectsZeroCapacity(t *testing.T) {
	_, err := NewMux(0)
	require.ErrorIs(t, err, ErrCapacity)

	m, err := NewMux(DefaultCapacity)
	require.NoError(t, err)
	assert.Equal(t, 64, m.Cap())
}

func TestMuxFIFOAcrossProducers(t *testing.T) {
	m, err := NewMux(DefaultCapacity)
	require.NoError(t, err)

	e1 := AxisEvent{Axis: X, Value: 40}
	e2 := AxisEvent{Axis: Motion, Value: -75}
	e3 := AxisEvent{Axis: Y, Value: 31}

	for _, ev := range []AxisEvent{e1, e2, e3} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			assert.True(t, m.Enqueue(ev))
		}()
		<-done
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, want := range []AxisEvent{e1, e2, e3} {
		got, err := m.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMuxDropsWhenFull(t *testing.T) {
	m, err := NewMux(DefaultCapacity)
	require.NoError(t, err)

	accepted := 0
	for i := range DefaultCapacity + 1 {
		if m.Enqueue(AxisEvent{Axis: X, Value: int16(i)}) {
			accepted++
		}
	}
	assert.Equal(t, DefaultCapacity, accepted)
	assert.EqualValues(t, 1, m.Dropped())
	assert.EqualValues(t, DefaultCapacity, m.Enqueued())

	for i := range DefaultCapacity {
		ev, ok := m.TryDequeue()
		require.True(t, ok)
		assert.EqualValues(t, i, ev.Value)
	}
	_, ok := m.TryDequeue()
	assert.False(t, ok)
}

func TestMuxDequeueBlocksUntilEnqueue(t *testing.T) {
	m, err := NewMux(4)
	require.NoError(t, err)

	got := make(chan AxisEvent)
	go func() {
		ev, err := m.Dequeue(context.Background())
		if err == nil {
			got <- ev
		}
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned before anything was enqueued")
	case <-time.After(20 * time.Millisecond):
	}

	m.Enqueue(AxisEvent{Axis: Y, Value: -50})
	select {
	case ev := <-got:
		assert.Equal(t, AxisEvent{Axis: Y, Value: -50}, ev)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake")
	}
}

func TestMuxCoalescedWakeStillDrainsAll(t *testing.T) {
	m, err := NewMux(16)
	require.NoError(t, err)

	for i := range 10 {
		m.Enqueue(AxisEvent{Axis: X, Value: int16(100 + i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := range 10 {
		ev, err := m.Dequeue(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 100+i, ev.Value)
	}
	assert.Zero(t, m.Len())
}

func TestMuxConcurrentProducersNeverBlock(t *testing.T) {
	m, err := NewMux(8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				m.Enqueue(AxisEvent{Axis: AxisID(p), Value: int16(i)})
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("producers blocked on a full queue")
	}
	assert.EqualValues(t, 300, m.Enqueued()+m.Dropped())
	assert.Equal(t, 8, m.Len())
}

func TestMuxDequeueHonoursContext(t *testing.T) {
	m, err := NewMux(1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClamp(t *testing.T) {
	assert.EqualValues(t, MaxValue, Clamp(5000))
	assert.EqualValues(t, MinValue, Clamp(-5000))
	assert.EqualValues(t, -100, Clamp(-100))
}
