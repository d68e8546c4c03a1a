package sample

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringwire/disruptor"
)

func TestJournalHandler_FlushesAtEndOfBatch(t *testing.T) {
	var out bytes.Buffer
	j := NewJournalHandler(&out, 0)

	require.NoError(t, j.OnEvent(&Slot{Value: 1}, 0, false))
	require.NoError(t, j.OnEvent(&Slot{Value: 2}, 1, false))
	assert.Zero(t, out.Len(), "nothing is written mid batch")
	require.NoError(t, j.OnEvent(&Slot{Value: 3}, 2, true))

	assert.Equal(t, "0 1\n1 2\n2 3\n", out.String())
	assert.Equal(t, int64(3), j.Written())
	assert.Equal(t, int64(1), j.Batches())
	assert.Equal(t, int64(2), j.LastSeen())

	require.NoError(t, j.OnEvent(&Slot{Value: 4}, 3, false))
	require.NoError(t, j.OnShutdown())
	assert.Equal(t, int64(4), j.Written())
	assert.Equal(t, "0 1\n1 2\n2 3\n3 4\n", out.String())
}

func TestBusinessHandler(t *testing.T) {
	h := NewBusinessHandler("business")
	assert.Equal(t, disruptor.InitialSequenceValue, h.LastSeen())
	for seq := int64(0); seq < 3; seq++ {
		require.NoError(t, h.OnEvent(&Slot{Value: 2}, seq, seq == 2))
	}
	assert.Equal(t, uint64(6), h.Sum())
	assert.Equal(t, int64(3), h.Count())
	assert.Equal(t, int64(2), h.LastSeen())
	assert.Equal(t, "business", h.Name())
}

func TestRandomDelay(t *testing.T) {
	start := time.Now()
	RandomDelay(time.Millisecond, 2*time.Millisecond)()
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
	RandomDelay(0, 0)()
}

func TestPublish(t *testing.T) {
	rb, err := disruptor.NewRingBuffer(NewSlot, 16)
	require.NoError(t, err)

	last, err := Publish(rb, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)
	assert.Equal(t, int64(5), PublishDirect(rb, 3, 9))
	assert.Equal(t, byte(7), rb.Get(2).Value)
	assert.Equal(t, byte(9), rb.Get(5).Value)
}
