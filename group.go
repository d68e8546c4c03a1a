package disruptor

// EventHandlerGroup is a set of handlers registered together.
// It is used to chain the next stage after them.
type EventHandlerGroup[T any] struct {
	d         *Disruptor[T]
	consumers []*consumer[T]
	err       error
}

// Then adds a stage of handlers that only see an event once every
// handler of g has handled it.
func (g *EventHandlerGroup[T]) Then(handlers ...EventHandler[T]) *EventHandlerGroup[T] {
	if g.err != nil {
		// The failure is already recorded; keep the chain failed
		// instead of turning the next stage into a first stage.
		return &EventHandlerGroup[T]{d: g.d, err: g.err}
	}
	return g.d.createEventProcessors(g.consumers, handlers)
}

// HandleEventsWith is Then.
func (g *EventHandlerGroup[T]) HandleEventsWith(handlers ...EventHandler[T]) *EventHandlerGroup[T] {
	return g.Then(handlers...)
}

// And returns the union of g and others.
func (g *EventHandlerGroup[T]) And(others ...*EventHandlerGroup[T]) *EventHandlerGroup[T] {
	merged := &EventHandlerGroup[T]{d: g.d, err: g.err}
	merged.consumers = append(merged.consumers, g.consumers...)
	for _, o := range others {
		if merged.err == nil {
			merged.err = o.err
		}
		merged.consumers = append(merged.consumers, o.consumers...)
	}
	return merged
}

// Err returns the error that made the group invalid, if any.
// The same error is returned again by Start.
func (g *EventHandlerGroup[T]) Err() error {
	return g.err
}

// Sequences returns the sequences of the group's processors.
func (g *EventHandlerGroup[T]) Sequences() []*Sequence {
	seqs := make([]*Sequence, len(g.consumers))
	for i, c := range g.consumers {
		seqs[i] = c.processor.Sequence()
	}
	return seqs
}

// Len returns the number of handlers in the group.
func (g *EventHandlerGroup[T]) Len() int {
	return len(g.consumers)
}
