// Package chain composes typed processing units into a chain that runs once per
// artifact scanned from a data source.
//
// A chain starts with a SourceUnit and ends with a Collector. Builder keeps that
// shape and checks, as each unit is added, that the unit's input category
// accepts the output category of the unit before it. Chain itself is the raw
// sequence: Append and AppendAll never validate, which is how hand-assembled
// sub-chains are built before Builder.SpliceChain inserts them.
//
// Execute scans the source once and fans the per-artifact runs out over a
// fixed number of workers. Every payload reaches the collector: transformed
// ones, ones a filter emptied, and ones whose run failed (marked with Err).
package chain

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

// DefaultQueueSize is the capacity of the channel between the source scan and the workers.
const DefaultQueueSize = 64

// FailureReporter receives every per-artifact failure. Implementations must be
// safe for concurrent use.
type FailureReporter interface {
	ReportFailure(ctx context.Context, failure *mcerrors.ItemError)
}

// Chain is an ordered sequence of units.
type Chain struct {
	name      string
	units     []Unit
	workers   int
	queueSize int
	logger    *zap.Logger
	tracer    trace.Tracer
	reporter  FailureReporter
	observer  Observer

	stats stats
}

// Option configures a Chain.
type Option func(*Chain)

// WithName sets the chain name used in logs, spans and run records.
func WithName(name string) Option {
	return func(c *Chain) { c.name = name }
}

// WithWorkers sets the number of concurrent per-artifact runs. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(c *Chain) { c.workers = n }
}

// WithQueueSize sets the buffer between the source scan and the workers.
func WithQueueSize(n int) Option {
	return func(c *Chain) { c.queueSize = n }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Chain) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithFailureReporter sets where per-artifact failures are reported.
func WithFailureReporter(r FailureReporter) Option {
	return func(c *Chain) { c.reporter = r }
}

// WithObserver sets hooks called around each Execute.
func WithObserver(o Observer) Option {
	return func(c *Chain) { c.observer = o }
}

// New creates an empty chain.
func New(opts ...Option) *Chain {
	c := &Chain{
		name:      "chain",
		workers:   1,
		queueSize: DefaultQueueSize,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("modelchain/chain"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	if c.queueSize < 1 {
		c.queueSize = 1
	}
	return c
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Workers returns the configured worker count.
func (c *Chain) Workers() int { return c.workers }

// Units returns a copy of the unit sequence.
func (c *Chain) Units() []Unit {
	out := make([]Unit, len(c.units))
	copy(out, c.units)
	return out
}

// Len returns the number of units.
func (c *Chain) Len() int { return len(c.units) }

// First returns the first unit, or nil for an empty chain.
func (c *Chain) First() Unit {
	if len(c.units) == 0 {
		return nil
	}
	return c.units[0]
}

// Last returns the last unit, or nil for an empty chain.
func (c *Chain) Last() Unit {
	if len(c.units) == 0 {
		return nil
	}
	return c.units[len(c.units)-1]
}

// Append adds u at the end without any validation.
func (c *Chain) Append(u Unit) {
	c.units = append(c.units, u)
}

// AppendAll adds us at the end, in order, without any validation.
func (c *Chain) AppendAll(us ...Unit) {
	c.units = append(c.units, us...)
}
