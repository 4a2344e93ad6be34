package aggo

import (
	"log/slog"

	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/resource"
)

type options struct {
	arrays      *bigarray.BigArrays
	controller  *resource.Controller
	logger      *Logger
	concurrency int
}

// Option configures Runner behavior.
type Option func(*options)

// WithBigArrays configures the array allocator shared by the pass's
// aggregators. If not set, an unaccounted allocator is used.
func WithBigArrays(arrays *bigarray.BigArrays) Option {
	return func(o *options) {
		o.arrays = arrays
	}
}

// WithController configures resource limits (memory accounting, IO
// throttling) for the pass. Pass nil to run unconstrained.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithConcurrency bounds the number of top-level aggregators collecting
// concurrently. Each aggregator still visits segments sequentially, so
// its bucket state never sees concurrent writers.
//
// If concurrency <= 1, aggregators collect one after another (default).
func WithConcurrency(concurrency int) Option {
	return func(o *options) {
		o.concurrency = concurrency
	}
}

// WithLogger configures structured logging for the pass.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:      NoopLogger(),
		concurrency: 1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.arrays == nil {
		opts := []bigarray.Option{}
		if o.controller != nil {
			opts = append(opts, bigarray.WithAccountant(o.controller))
		}
		o.arrays = bigarray.New(opts...)
	}
	return o
}
