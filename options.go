package disruptor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ringwire/disruptor/logging"
)

// Option customizes a ring buffer or a disruptor.
type Option func(*options)

type options struct {
	producerType     ProducerType
	waitStrategy     WaitStrategy
	producerYield    func(spins int)
	exceptionHandler ExceptionHandler
	logger           logging.Logger
	name             string
	registerer       prometheus.Registerer
}

func loadOptions(opts ...Option) *options {
	o := &options{
		producerType:  SingleProducer,
		producerYield: defaultProducerYield,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.waitStrategy == nil {
		o.waitStrategy = NewBlockingWaitStrategy()
	}
	if o.logger == nil {
		o.logger = logging.GetDefaultLogger()
	}
	if o.exceptionHandler == nil {
		o.exceptionHandler = &LoggingExceptionHandler{Logger: o.logger}
	}
	return o
}

// WithProducerType selects single or multi producer claiming.
// The default is SingleProducer.
func WithProducerType(producerType ProducerType) Option {
	return func(opts *options) {
		opts.producerType = producerType
	}
}

// WithWaitStrategy sets how consumers wait for work.
// The default is a BlockingWaitStrategy.
func WithWaitStrategy(ws WaitStrategy) Option {
	return func(opts *options) {
		opts.waitStrategy = ws
	}
}

// WithProducerYield overrides how Next yields when the buffer is full.
// yield receives the number of times it has been called so far in one
// Next call. The default is runtime.Gosched.
func WithProducerYield(yield func(spins int)) Option {
	return func(opts *options) {
		if yield != nil {
			opts.producerYield = yield
		}
	}
}

// WithExceptionHandler sets the handler failures are reported to.
// The default logs and moves on.
func WithExceptionHandler(h ExceptionHandler) Option {
	return func(opts *options) {
		opts.exceptionHandler = h
	}
}

// WithLogger sets the logger of the disruptor and its default
// exception handler.
func WithLogger(logger logging.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithName names the disruptor in logs and metric labels.
// The default is a random UUID.
func WithName(name string) Option {
	return func(opts *options) {
		opts.name = name
	}
}

// WithMetrics registers a collector for the disruptor with registerer
// on Start and unregisters it on Shutdown.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(opts *options) {
		opts.registerer = registerer
	}
}
