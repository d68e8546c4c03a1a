package disruptor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type valueEvent struct {
	Value int64
	Tag   string
}

func newValueEvent() valueEvent {
	return valueEvent{Value: -1}
}

func TestNewRingBuffer(t *testing.T) {
	testCases := []struct {
		name    string
		size    int
		wantErr error
	}{
		{name: "valid size", size: 8},
		{name: "size one", size: 1},
		{name: "invalid size - not power of two", size: 7, wantErr: ErrCapacity},
		{name: "invalid size - zero", size: 0, wantErr: ErrCapacity},
		{name: "invalid size - negative", size: -8, wantErr: ErrCapacity},
	}
	for _, producerType := range []ProducerType{SingleProducer, MultiProducer} {
		for _, tc := range testCases {
			t.Run(fmt.Sprintf("%s/%s", producerType, tc.name), func(t *testing.T) {
				rb, err := NewRingBuffer(newValueEvent, tc.size, WithProducerType(producerType))
				if tc.wantErr != nil {
					require.ErrorIs(t, err, tc.wantErr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tc.size, rb.BufferSize())
				assert.Equal(t, InitialSequenceValue, rb.Cursor())
				assert.Equal(t, int64(tc.size), rb.RemainingCapacity())
			})
		}
	}
}

func TestRingBuffer_FactoryPrefill(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 4)
	require.NoError(t, err)
	for seq := int64(0); seq < 4; seq++ {
		assert.Equal(t, int64(-1), rb.Get(seq).Value)
	}
	// Slots are reused, not reallocated.
	assert.Same(t, rb.Get(1), rb.Get(5))
}

func TestRingBuffer_PublishAndRead(t *testing.T) {
	for _, producerType := range []ProducerType{SingleProducer, MultiProducer} {
		t.Run(producerType.String(), func(t *testing.T) {
			rb, err := NewRingBuffer(newValueEvent, 8, WithProducerType(producerType))
			require.NoError(t, err)
			b := rb.NewBarrier()

			seq := rb.Next()
			rb.Get(seq).Value = 29
			rb.Publish(seq)

			available, err := b.WaitFor(0)
			require.NoError(t, err)
			assert.Equal(t, int64(0), available)
			assert.Equal(t, int64(29), rb.Get(0).Value)
			assert.True(t, rb.IsPublished(0))

			hi, err := rb.NextN(3)
			require.NoError(t, err)
			rb.PublishRange(hi-2, hi)
			available, err = b.WaitFor(1)
			require.NoError(t, err)
			assert.Equal(t, int64(3), available)
		})
	}
}

func TestRingBuffer_Gating(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 4)
	require.NoError(t, err)
	consumer := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumer)

	hi, err := rb.NextN(4)
	require.NoError(t, err)
	rb.PublishRange(0, hi)
	assert.False(t, rb.HasAvailableCapacity(1))
	assert.Equal(t, InitialSequenceValue, rb.MinimumGatingSequence())
	_, err = rb.TryNext()
	assert.ErrorIs(t, err, ErrInsufficientCapacity)

	require.True(t, rb.RemoveGatingSequence(consumer))
	assert.True(t, rb.HasAvailableCapacity(4))
	assert.Equal(t, hi, rb.MinimumGatingSequence())
}

func TestRingBuffer_PublishEvent(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 8)
	require.NoError(t, err)

	require.NoError(t, rb.PublishEvent(EventTranslatorFunc[valueEvent](func(e *valueEvent, seq int64) error {
		e.Value = seq * 10
		return nil
	})))
	require.NoError(t, rb.TryPublishEvent(EventTranslatorFunc[valueEvent](func(e *valueEvent, _ int64) error {
		e.Tag = "try"
		return nil
	})))
	require.NoError(t, PublishEventOneArg[valueEvent, int64](rb, EventTranslatorOneArgFunc[valueEvent, int64](func(e *valueEvent, _ int64, v int64) error {
		e.Value = v
		return nil
	}), 7))
	require.NoError(t, PublishEventTwoArg[valueEvent, int64, string](rb, EventTranslatorTwoArgFunc[valueEvent, int64, string](func(e *valueEvent, _ int64, v int64, tag string) error {
		e.Value, e.Tag = v, tag
		return nil
	}), 8, "two"))
	require.NoError(t, rb.PublishEventVararg(EventTranslatorVarargFunc[valueEvent](func(e *valueEvent, _ int64, args ...any) error {
		e.Tag = fmt.Sprint(args...)
		return nil
	}), "var", "arg"))

	assert.Equal(t, int64(4), rb.Cursor())
	assert.Equal(t, int64(0), rb.Get(0).Value)
	assert.Equal(t, "try", rb.Get(1).Tag)
	assert.Equal(t, int64(7), rb.Get(2).Value)
	assert.Equal(t, valueEvent{Value: 8, Tag: "two"}, *rb.Get(3))
	assert.Equal(t, "vararg", rb.Get(4).Tag)
}

func TestRingBuffer_PublishEvents(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 8, WithProducerType(MultiProducer))
	require.NoError(t, err)
	set := func(v int64) EventTranslator[valueEvent] {
		return EventTranslatorFunc[valueEvent](func(e *valueEvent, _ int64) error {
			e.Value = v
			return nil
		})
	}
	require.NoError(t, rb.PublishEvents(set(1), set(2), set(3)))
	require.NoError(t, rb.PublishEvents())
	assert.Equal(t, int64(2), rb.Cursor())

	tr := EventTranslatorOneArgFunc[valueEvent, int64](func(e *valueEvent, _ int64, v int64) error {
		e.Value = v
		return nil
	})
	require.NoError(t, PublishEventsOneArg[valueEvent, int64](rb, tr, 4, 5))
	for seq := int64(0); seq <= 4; seq++ {
		assert.True(t, rb.IsPublished(seq))
		assert.Equal(t, seq+1, rb.Get(seq).Value)
	}
}

var errTranslate = errors.New("translate failed")

func TestRingBuffer_TranslatorFailure(t *testing.T) {
	failing := EventTranslatorFunc[valueEvent](func(e *valueEvent, _ int64) error {
		e.Value = 99 // partially written
		return errTranslate
	})

	for _, producerType := range []ProducerType{SingleProducer, MultiProducer} {
		t.Run(producerType.String()+"/relinquished", func(t *testing.T) {
			rb, err := NewRingBuffer(newValueEvent, 4, WithProducerType(producerType))
			require.NoError(t, err)

			err = rb.PublishEvent(failing)
			require.ErrorIs(t, err, errTranslate)
			var te *TranslateError
			require.ErrorAs(t, err, &te)
			assert.True(t, te.Relinquished)
			assert.Equal(t, int64(0), te.Sequence)

			assert.Equal(t, InitialSequenceValue, rb.Cursor())
			assert.False(t, rb.IsPublished(0))
			assert.Equal(t, int64(-1), rb.Get(0).Value, "slot is reset")
			assert.Equal(t, int64(0), rb.Next(), "sequence is claimed again")
		})
	}

	panicking := EventTranslatorFunc[valueEvent](func(e *valueEvent, _ int64) error {
		e.Value = 99
		panic("translator bug")
	})
	for _, producerType := range []ProducerType{SingleProducer, MultiProducer} {
		t.Run(producerType.String()+"/panic", func(t *testing.T) {
			rb, err := NewRingBuffer(newValueEvent, 8, WithProducerType(producerType))
			require.NoError(t, err)

			err = rb.PublishEvent(panicking)
			var te *TranslateError
			require.ErrorAs(t, err, &te)
			assert.True(t, te.Relinquished)
			var pe *PanicError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "translator bug", pe.Value)
			assert.Equal(t, InitialSequenceValue, rb.Cursor())
			assert.False(t, rb.IsPublished(0))

			require.NoError(t, rb.PublishEvent(EventTranslatorFunc[valueEvent](func(e *valueEvent, _ int64) error {
				e.Value = 7
				return nil
			})))
			assert.Equal(t, int64(0), rb.Cursor())
			assert.Equal(t, int64(7), rb.Get(0).Value)
		})
	}

	t.Run("batch panic aborts as a whole", func(t *testing.T) {
		rb, err := NewRingBuffer(newValueEvent, 8, WithProducerType(MultiProducer))
		require.NoError(t, err)
		tr := EventTranslatorOneArgFunc[valueEvent, int64](func(e *valueEvent, _ int64, v int64) error {
			if v < 0 {
				panic(errTranslate)
			}
			e.Value = v
			return nil
		})
		err = PublishEventsOneArg[valueEvent, int64](rb, tr, 1, -1, 3)
		var te *TranslateError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, int64(1), te.Sequence)
		assert.True(t, te.Relinquished)
		assert.ErrorIs(t, err, errTranslate)
		assert.Equal(t, InitialSequenceValue, rb.Cursor())
		assert.Equal(t, int64(-1), rb.Get(0).Value)
	})

	t.Run("multi/published after a later claim", func(t *testing.T) {
		rb, err := NewRingBuffer(newValueEvent, 4, WithProducerType(MultiProducer))
		require.NoError(t, err)
		var other int64
		err = rb.PublishEvent(EventTranslatorFunc[valueEvent](func(e *valueEvent, _ int64) error {
			// Another producer claims behind this one before it fails.
			other = rb.Next()
			e.Value = 99
			return errTranslate
		}))
		var te *TranslateError
		require.ErrorAs(t, err, &te)
		assert.False(t, te.Relinquished)
		assert.True(t, rb.IsPublished(0), "failed slot is published so consumers can move past it")
		assert.Equal(t, int64(-1), rb.Get(0).Value)

		rb.Get(other).Value = 1
		rb.Publish(other)
		available, err := rb.NewBarrier().WaitFor(0)
		require.NoError(t, err)
		assert.Equal(t, other, available)
	})

	t.Run("batch aborts as a whole", func(t *testing.T) {
		rb, err := NewRingBuffer(newValueEvent, 8)
		require.NoError(t, err)
		ok := EventTranslatorFunc[valueEvent](func(e *valueEvent, seq int64) error {
			e.Value = seq
			return nil
		})
		err = rb.PublishEvents(ok, failing, ok)
		var te *TranslateError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, int64(1), te.Sequence)
		assert.True(t, te.Relinquished)
		assert.Equal(t, InitialSequenceValue, rb.Cursor())
		assert.Equal(t, int64(-1), rb.Get(0).Value)
	})

	t.Run("try publish on a full buffer", func(t *testing.T) {
		rb, err := NewRingBuffer(newValueEvent, 1)
		require.NoError(t, err)
		rb.AddGatingSequences(NewSequence(InitialSequenceValue))
		rb.Publish(rb.Next())
		err = rb.TryPublishEvent(failing)
		assert.ErrorIs(t, err, ErrInsufficientCapacity)
	})
}

func TestRingBuffer_TryPublishEventOneArg(t *testing.T) {
	rb, err := NewRingBuffer(newValueEvent, 2)
	require.NoError(t, err)
	consumer := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumer)

	tr := EventTranslatorOneArgFunc[valueEvent, int64](func(e *valueEvent, _ int64, v int64) error {
		e.Value = v
		return nil
	})
	require.NoError(t, TryPublishEventOneArg[valueEvent, int64](rb, tr, 1))
	require.NoError(t, TryPublishEventOneArg[valueEvent, int64](rb, tr, 2))
	assert.ErrorIs(t, TryPublishEventOneArg[valueEvent, int64](rb, tr, 3), ErrInsufficientCapacity)
	assert.Equal(t, int64(1), rb.Cursor())

	consumer.Set(0)
	require.NoError(t, TryPublishEventOneArg[valueEvent, int64](rb, tr, 3))
	assert.Equal(t, int64(3), rb.Get(2).Value)
}
