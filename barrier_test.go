package disruptor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceBarrier_WaitForDependencies(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 16, WithWaitStrategy(BusySpinWaitStrategy{}))
	require.NoError(t, err)
	hi, err := rb.NextN(10)
	require.NoError(t, err)
	rb.PublishRange(0, hi)

	fast, slow := NewSequence(8), NewSequence(3)
	b := rb.NewBarrier(fast, slow)
	assert.Equal(t, int64(3), b.Cursor())

	available, err := b.WaitFor(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), available, "returns the slowest dependency, not the requested sequence")

	done := make(chan int64, 1)
	go func() {
		available, _ := b.WaitFor(5)
		done <- available
	}()
	select {
	case v := <-done:
		t.Fatalf("WaitFor(5) = %d before the slowest dependency reached it", v)
	case <-time.After(10 * time.Millisecond):
	}
	slow.Set(6)
	assert.Equal(t, int64(6), <-done)
}

func TestSequenceBarrier_MultiProducerGap(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 16,
		WithProducerType(MultiProducer), WithWaitStrategy(BusySpinWaitStrategy{}))
	require.NoError(t, err)
	b := rb.NewBarrier()

	hi, err := rb.NextN(4)
	require.NoError(t, err)
	rb.Publish(0)
	rb.Publish(1)
	rb.Publish(hi) // 2 is still unpublished

	available, err := b.WaitFor(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), available)

	done := make(chan int64, 1)
	go func() {
		available, _ := b.WaitFor(2)
		done <- available
	}()
	select {
	case v := <-done:
		t.Fatalf("WaitFor(2) = %d while 2 is unpublished", v)
	case <-time.After(10 * time.Millisecond):
	}
	rb.Publish(2)
	assert.Equal(t, hi, <-done)
}

func TestSequenceBarrier_Alert(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 4)
	require.NoError(t, err)
	b := rb.NewBarrier()

	done := make(chan error, 1)
	go func() {
		_, err := b.WaitFor(0)
		done <- err
	}()
	b.Alert()
	assert.ErrorIs(t, <-done, ErrAlerted)
	assert.True(t, b.IsAlerted())

	_, err = b.WaitFor(0)
	assert.ErrorIs(t, err, ErrAlerted, "stays alerted until cleared")

	b.ClearAlert()
	assert.False(t, b.IsAlerted())
	assert.NoError(t, b.CheckAlert())
	rb.Publish(rb.Next())
	available, err := b.WaitFor(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)
}
