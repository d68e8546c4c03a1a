package disruptor

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMultiProducerSequencer_Next(t *testing.T) {
	t.Run("producer blocked by consumer", func(t *testing.T) {
		blocked := make(chan struct{})
		s := newMultiProducerSequencer(2, BusySpinWaitStrategy{}, blockingYield(blocked))
		consumer := NewSequence(InitialSequenceValue)
		s.AddGatingSequences(consumer)

		// Fill the buffer.
		s.Publish(s.Next())
		s.Publish(s.Next())

		done := make(chan int64)
		go func() {
			done <- s.Next()
		}()

		<-blocked
		select {
		case seq := <-done:
			t.Fatalf("Next() = %d while the buffer was full", seq)
		default:
		}

		consumer.Set(0)
		if got := <-done; got != 2 {
			t.Errorf("Next() = %d, want 2", got)
		}
	})

	t.Run("claims are visible in the cursor before publish", func(t *testing.T) {
		s := newMultiProducerSequencer(8, BusySpinWaitStrategy{}, defaultProducerYield)
		hi, err := s.NextN(3)
		if err != nil || hi != 2 {
			t.Fatalf("NextN(3) = %d, %v, want 2, nil", hi, err)
		}
		if got := s.Cursor(); got != 2 {
			t.Errorf("Cursor() = %d, want 2", got)
		}
		if s.IsAvailable(0) {
			t.Errorf("IsAvailable(0) = true before publish")
		}
	})
}

func TestMultiProducerSequencer_HighestPublishedSequence(t *testing.T) {
	s := newMultiProducerSequencer(4, BusySpinWaitStrategy{}, defaultProducerYield)
	hi, _ := s.NextN(3)

	// Publish out of order: 2 and 1 before 0.
	s.Publish(2)
	s.Publish(1)
	if got := s.HighestPublishedSequence(0, hi); got != InitialSequenceValue {
		t.Errorf("HighestPublishedSequence(0, %d) = %d, want %d", hi, got, InitialSequenceValue)
	}
	s.Publish(0)
	if got := s.HighestPublishedSequence(0, hi); got != 2 {
		t.Errorf("HighestPublishedSequence(0, %d) = %d, want 2", hi, got)
	}

	// The same slot on the next lap is not available until republished.
	consumer := NewSequence(2)
	s.AddGatingSequences(consumer)
	s.Next()         // 3
	next := s.Next() // 4, slot 0 again
	if s.IsAvailable(next) {
		t.Errorf("IsAvailable(%d) = true, slot still holds sequence 0", next)
	}
	s.PublishRange(3, next)
	if !s.IsAvailable(next) || s.IsAvailable(0) {
		t.Errorf("IsAvailable() does not track laps: %d=%v 0=%v", next, s.IsAvailable(next), s.IsAvailable(0))
	}
}

func TestMultiProducerSequencer_TryNext(t *testing.T) {
	s := newMultiProducerSequencer(2, BusySpinWaitStrategy{}, defaultProducerYield)
	consumer := NewSequence(InitialSequenceValue)
	s.AddGatingSequences(consumer)

	if _, err := s.TryNextN(3); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("TryNextN(3) error = %v, want %v", err, ErrInvalidCount)
	}
	if hi, err := s.TryNextN(2); err != nil || hi != 1 {
		t.Fatalf("TryNextN(2) = %d, %v, want 1, nil", hi, err)
	}
	if _, err := s.TryNext(); !errors.Is(err, ErrInsufficientCapacity) {
		t.Errorf("TryNext() error = %v, want %v", err, ErrInsufficientCapacity)
	}
	if got := s.Cursor(); got != 1 {
		t.Errorf("Cursor() = %d after failed TryNext, want 1", got)
	}
	consumer.Set(0)
	if got := s.RemainingCapacity(); got != 1 {
		t.Errorf("RemainingCapacity() = %d, want 1", got)
	}
}

func TestMultiProducerSequencer_Release(t *testing.T) {
	s := newMultiProducerSequencer(8, BusySpinWaitStrategy{}, defaultProducerYield)
	first := s.Next()
	if !s.release(first, first) {
		t.Fatalf("release(%d) = false with no later claim", first)
	}
	if got := s.Cursor(); got != InitialSequenceValue {
		t.Errorf("Cursor() after release = %d, want %d", got, InitialSequenceValue)
	}

	first = s.Next()
	second := s.Next()
	if s.release(first, first) {
		t.Errorf("release(%d) = true although %d was claimed after it", first, second)
	}
}

// Smoke test to provide coverage of concurrent producers/consumer.
func TestMultiProducer_SmokeTest(t *testing.T) {
	const (
		n         = 200_000
		producers = 2
	)
	type testData struct {
		producer int
		i        int
	}
	rb, err := NewMultiProducerRingBuffer[testData](nil, 4, YieldingWaitStrategy{})
	if err != nil {
		t.Fatal(err)
	}
	consumer := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumer)
	b := rb.NewBarrier()

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= n; i++ {
				seq := rb.Next()
				*rb.Get(seq) = testData{producer: p, i: i}
				rb.Publish(seq)
			}
		}()
	}

	// Each producer's events arrive in its own publish order.
	last := make([]int, producers)
	outOfOrder := 0
	wg.Add(1)
	go func() {
		defer wg.Done()
		next := int64(0)
		for next < producers*n {
			available, err := b.WaitFor(next)
			if err != nil {
				t.Errorf("WaitFor(%d) error = %v", next, err)
				return
			}
			for ; next <= available; next++ {
				e := rb.Get(next)
				if e.i != last[e.producer]+1 {
					outOfOrder++
				}
				last[e.producer] = e.i
			}
			consumer.Set(available)
		}
	}()
	wg.Wait()

	if diff := cmp.Diff([]int{n, n}, last); diff != "" {
		t.Errorf("last value per producer (-want +got):\n%s", diff)
	}
	if outOfOrder != 0 {
		t.Errorf("%d events arrived out of their producer's order", outOfOrder)
	}
}

// A consumer that finds a claimed but unpublished slot must hand the
// processor back to the producers instead of spinning on it.
func TestMultiProducer_SingleProc(t *testing.T) {
	const (
		n         = 2_000
		producers = 2
	)
	t.Cleanup(func(prev int) func() {
		return func() { runtime.GOMAXPROCS(prev) }
	}(runtime.GOMAXPROCS(1)))

	rb, err := NewMultiProducerRingBuffer[int64](nil, 4, YieldingWaitStrategy{})
	if err != nil {
		t.Fatal(err)
	}
	consumer := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumer)
	b := rb.NewBarrier()

	for range producers {
		go func() {
			for i := 1; i <= n; i++ {
				seq := rb.Next()
				*rb.Get(seq) = int64(i)
				rb.Publish(seq)
			}
		}()
	}

	done := make(chan int64, 1)
	go func() {
		var sum int64
		next := int64(0)
		for next < producers*n {
			available, err := b.WaitFor(next)
			if err != nil {
				sum = -1
				break
			}
			for ; next <= available; next++ {
				sum += *rb.Get(next)
			}
			consumer.Set(available)
		}
		done <- sum
	}()

	select {
	case sum := <-done:
		if want := int64(producers * n * (n + 1) / 2); sum != want {
			t.Errorf("sum = %d, want %d", sum, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer stuck at %d of %d events", consumer.Get()+1, producers*n)
	}
}
