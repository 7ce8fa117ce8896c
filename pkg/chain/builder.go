package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wehubfusion/modelchain/internal/reporting"
	"github.com/wehubfusion/modelchain/pkg/analysis"
	"github.com/wehubfusion/modelchain/pkg/config"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
	"github.com/wehubfusion/modelchain/pkg/store"
)

const sentryFlushTimeout = 2 * time.Second

// Builder assembles a chain that always starts with its SourceUnit and ends
// with a Collector. AppendUnit checks category compatibility before inserting
// a unit in front of the collector. The Create* composites and AppendUnits
// insert several units as one step: all of them or none.
type Builder struct {
	chain     *Chain
	source    *SourceUnit
	collector *Collector
	petriNets *analysis.PetriNets

	// owned is closed by Close when the builder opened the data source itself.
	owned  store.DataSource
	sentry *reporting.SentryReporter
}

// NewBuilder opens the data source described by cfg and creates a builder
// whose chain runs cfg.Workers workers. When cfg.SentryDSN is set, failures are
// reported to Sentry unless opts install another reporter.
func NewBuilder(ctx context.Context, cfg *config.Config, kind PayloadKind, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, mcerrors.Configuration("builder needs a configuration")
	}

	base := []Option{
		WithWorkers(cfg.Workers),
		WithQueueSize(cfg.QueueSize),
	}
	var sentryReporter *reporting.SentryReporter
	if cfg.SentryDSN != "" {
		r, err := reporting.NewSentryReporter(reporting.SentryConfig{
			DSN:         cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			return nil, mcerrors.Configuration("sentry: %v", err)
		}
		sentryReporter = r
		base = append(base, WithFailureReporter(r))
	}
	c := New(append(base, opts...)...)

	src, err := store.Open(ctx, cfg, c.logger)
	if err != nil {
		return nil, err
	}

	b := newBuilder(c, src, kind)
	b.owned = src
	b.sentry = sentryReporter
	return b, nil
}

// NewBuilderWithSource creates a builder over an already opened data source.
func NewBuilderWithSource(src store.DataSource, workers int, kind PayloadKind, opts ...Option) *Builder {
	c := New(append([]Option{WithWorkers(workers)}, opts...)...)
	return newBuilder(c, src, kind)
}

func newBuilder(c *Chain, src store.DataSource, kind PayloadKind) *Builder {
	b := &Builder{
		chain:     c,
		source:    NewSourceUnit(src, kind),
		collector: NewCollector(),
	}
	if src != nil {
		b.petriNets = analysis.NewPetriNets(store.CacheOf(src), c.logger)
	} else {
		b.petriNets = analysis.NewPetriNets(nil, c.logger)
	}
	c.units = []Unit{b.source, b.collector}
	return b
}

// Chain returns the live chain under construction.
func (b *Builder) Chain() *Chain { return b.chain }

// Source returns the chain's source unit.
func (b *Builder) Source() *SourceUnit { return b.source }

// Collector returns the chain's current collector. After SpliceChain it is the
// spliced chain's terminal collector.
func (b *Builder) Collector() *Collector { return b.collector }

// SetSourceFilter sets the scan filter, replacing any previous one.
func (b *Builder) SetSourceFilter(f model.FilterConfig) {
	b.source.SetFilter(f)
}

// AppendUnit inserts u immediately before the collector. It fails with a
// *mcerrors.TypeMismatchError, leaving the chain unchanged, when u's input
// category does not accept the output category of the unit currently before
// the collector.
func (b *Builder) AppendUnit(u Unit) error {
	if u == nil {
		return mcerrors.Configuration("cannot append a nil unit")
	}
	n := len(b.chain.units)
	if n < 2 {
		return mcerrors.Configuration("chain has no collector to append before")
	}
	tail := b.chain.units[n-2]
	if !Accepts(u.InputCategory(), tail.OutputCategory()) {
		return &mcerrors.TypeMismatchError{
			Expected: u.InputCategory().String(),
			Actual:   tail.OutputCategory().String(),
			Unit:     u.Name(),
		}
	}

	units := make([]Unit, 0, n+1)
	units = append(units, b.chain.units[:n-1]...)
	units = append(units, u, b.chain.units[n-1])
	b.chain.units = units

	b.chain.logger.Debug("Appended unit",
		zap.String("chain", b.chain.name),
		zap.String("unit", u.Name()),
		zap.Stringer("input", u.InputCategory()),
		zap.Stringer("output", u.OutputCategory()))
	return nil
}

// AppendUnits appends us in order as one step. On the first failure the chain
// is restored to its state before the call.
func (b *Builder) AppendUnits(us ...Unit) error {
	return b.Atomically(func(b *Builder) error {
		for _, u := range us {
			if err := b.AppendUnit(u); err != nil {
				return err
			}
		}
		return nil
	})
}

// Atomically runs fn against b. If fn returns an error the chain's units and
// the collector are restored to what they were before the call. Calls nest.
func (b *Builder) Atomically(fn func(b *Builder) error) error {
	units := b.chain.Units()
	collector := b.collector
	if err := fn(b); err != nil {
		b.chain.units = units
		b.collector = collector
		return err
	}
	return nil
}

// SpliceChain adds sub's units in place of the collector, without any
// category check. When sub ends with a Collector, that instance becomes the
// builder's collector; otherwise the current collector stays last, after sub's
// units. An empty sub leaves the chain unchanged.
func (b *Builder) SpliceChain(sub *Chain) {
	if sub == nil || sub.Len() == 0 {
		return
	}
	n := len(b.chain.units)
	units := make([]Unit, 0, n+sub.Len())
	units = append(units, b.chain.units[:max(n-1, 0)]...)
	units = append(units, sub.units...)

	if c, ok := sub.Last().(*Collector); ok {
		b.collector = c
	} else {
		units = append(units, b.collector)
	}
	b.chain.units = units

	b.chain.logger.Debug("Spliced chain",
		zap.String("chain", b.chain.name),
		zap.String("sub", sub.name),
		zap.Int("units", sub.Len()))
}

// Close flushes pending failure reports and closes the data source when the
// builder opened it.
func (b *Builder) Close() error {
	if b.sentry != nil {
		b.sentry.Flush(sentryFlushTimeout)
	}
	if b.owned == nil {
		return nil
	}
	if err := b.owned.Close(); err != nil && !errors.Is(err, mcerrors.ErrNotConnected) {
		return fmt.Errorf("close data source: %w", err)
	}
	b.owned = nil
	return nil
}
