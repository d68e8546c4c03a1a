package sample

import (
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"
)

// JournalHandler appends one line per event to a pooled buffer and
// writes the buffer out once per batch, at the end of the batch.
type JournalHandler struct {
	out        io.Writer
	buf        *bytebufferpool.ByteBuffer
	pending    int64
	flushDelay time.Duration

	mu       sync.Mutex
	written  int64
	batches  int64
	lastSeen atomic.Int64
}

// NewJournalHandler returns a journal writing to out. flushDelay simulates
// the cost of the write at every batch end.
func NewJournalHandler(out io.Writer, flushDelay time.Duration) *JournalHandler {
	if out == nil {
		out = io.Discard
	}
	j := &JournalHandler{out: out, flushDelay: flushDelay}
	j.lastSeen.Store(-1)
	return j
}

func (j *JournalHandler) OnEvent(slot *Slot, seq int64, endOfBatch bool) error {
	if j.buf == nil {
		j.buf = bytebufferpool.Get()
	}
	j.pending++
	b := strconv.AppendInt(j.buf.B, seq, 10)
	b = append(b, ' ')
	b = strconv.AppendUint(b, uint64(slot.Value), 10)
	j.buf.B = append(b, '\n')
	j.lastSeen.Store(seq)

	if !endOfBatch {
		return nil
	}
	return j.flush()
}

func (j *JournalHandler) flush() error {
	if j.buf == nil {
		return nil
	}
	if j.flushDelay > 0 {
		time.Sleep(j.flushDelay)
	}
	_, err := j.buf.WriteTo(j.out)

	j.mu.Lock()
	j.written += j.pending
	j.batches++
	j.mu.Unlock()

	bytebufferpool.Put(j.buf)
	j.buf = nil
	j.pending = 0
	return err
}

// OnStart implements disruptor.LifecycleAware.
func (j *JournalHandler) OnStart() error { return nil }

// OnShutdown writes out anything still pending.
func (j *JournalHandler) OnShutdown() error { return j.flush() }

// Name implements disruptor.Named.
func (j *JournalHandler) Name() string { return "journal" }

// Written returns the number of events written out.
func (j *JournalHandler) Written() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}

// Batches returns the number of writes.
func (j *JournalHandler) Batches() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.batches
}

// LastSeen returns the last sequence journaled, or -1.
func (j *JournalHandler) LastSeen() int64 { return j.lastSeen.Load() }
