package disruptor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "disruptor"

// collector exports the positions of a disruptor on every scrape.
// Values are read from the live sequences, nothing is recorded on the hot path.
type collector[T any] struct {
	d *Disruptor[T]

	cursor            *prometheus.Desc
	bufferSize        *prometheus.Desc
	remainingCapacity *prometheus.Desc
	processorSequence *prometheus.Desc
	processorLag      *prometheus.Desc
	processorRunning  *prometheus.Desc
	exceptions        *prometheus.Desc
}

// NewCollector returns a prometheus.Collector for d. Every metric carries
// the constant label disruptor=<name>; processor metrics are labeled with
// the handler name.
//
// Disruptors created WithMetrics register their collector on Start.
func NewCollector[T any](d *Disruptor[T]) prometheus.Collector {
	labels := prometheus.Labels{"disruptor": d.name}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, variable, labels)
	}
	return &collector[T]{
		d:                 d,
		cursor:            desc("cursor", "Current ring buffer cursor."),
		bufferSize:        desc("buffer_size", "Number of slots in the ring buffer."),
		remainingCapacity: desc("remaining_capacity", "Slots that can be claimed without waiting."),
		processorSequence: desc("processor_sequence", "Last sequence handled by a processor.", "processor"),
		processorLag:      desc("processor_lag", "Published events a processor has not handled yet.", "processor"),
		processorRunning:  desc("processor_running", "1 if the processor loop is running.", "processor"),
		exceptions:        desc("exceptions_total", "Failures reported to the exception handler."),
	}
}

func (c *collector[T]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cursor
	ch <- c.bufferSize
	ch <- c.remainingCapacity
	ch <- c.processorSequence
	ch <- c.processorLag
	ch <- c.processorRunning
	ch <- c.exceptions
}

func (c *collector[T]) Collect(ch chan<- prometheus.Metric) {
	rb := c.d.ringBuffer
	cursor := rb.Cursor()
	ch <- prometheus.MustNewConstMetric(c.cursor, prometheus.GaugeValue, float64(cursor))
	ch <- prometheus.MustNewConstMetric(c.bufferSize, prometheus.GaugeValue, float64(rb.BufferSize()))
	ch <- prometheus.MustNewConstMetric(c.remainingCapacity, prometheus.GaugeValue, float64(rb.RemainingCapacity()))
	ch <- prometheus.MustNewConstMetric(c.exceptions, prometheus.CounterValue, float64(c.d.exceptions.count.Load()))

	c.d.mu.Lock()
	consumers := append([]*consumer[T](nil), c.d.consumers...)
	c.d.mu.Unlock()
	for _, cons := range consumers {
		seq := cons.processor.Sequence().Get()
		running := 0.0
		if cons.processor.IsRunning() {
			running = 1
		}
		ch <- prometheus.MustNewConstMetric(c.processorSequence, prometheus.GaugeValue, float64(seq), cons.name)
		ch <- prometheus.MustNewConstMetric(c.processorLag, prometheus.GaugeValue, float64(max(cursor-seq, 0)), cons.name)
		ch <- prometheus.MustNewConstMetric(c.processorRunning, prometheus.GaugeValue, running, cons.name)
	}
}
