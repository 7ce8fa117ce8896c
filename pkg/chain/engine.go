package chain

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
)

// Stats counts the outcome of the artifacts handled by the last Execute.
type Stats struct {
	Processed int64
	Filtered  int64
	Failed    int64
}

type stats struct {
	processed atomic.Int64
	filtered  atomic.Int64
	failed    atomic.Int64
}

func (s *stats) reset() {
	s.processed.Store(0)
	s.filtered.Store(0)
	s.failed.Store(0)
}

// Stats returns the counters of the last (or running) Execute.
func (c *Chain) Stats() Stats {
	return Stats{
		Processed: c.stats.processed.Load(),
		Filtered:  c.stats.filtered.Load(),
		Failed:    c.stats.failed.Load(),
	}
}

// Execute scans the source and runs every artifact through the units after it.
//
// The first unit must be a SourceUnit with a filter set and the last unit a
// Collector, otherwise a configuration error is returned before any work
// starts. The source pushes artifacts into a bounded channel; closing it marks
// the end of the scan. Workers drain the channel and run each artifact
// sequentially through the units. A failing artifact is logged, reported and
// recorded in the collector with Err set; it never stops the other artifacts.
// Execute returns the collector's contents once the scan has ended and every
// in-flight run has finished. A scan error is returned along with whatever
// was collected.
func (c *Chain) Execute(ctx context.Context) ([]*Payload, error) {
	src, collector, err := c.endpoints()
	if err != nil {
		return nil, err
	}
	stages := c.Units()[1:]

	run := Run{
		ID:        uuid.New().String(),
		Chain:     c.name,
		Workers:   c.workers,
		StartedAt: time.Now(),
	}
	if c.observer != nil {
		if err := c.observer.BeforeRun(ctx, run); err != nil {
			return nil, fmt.Errorf("before run: %w", err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "chain.Execute",
		trace.WithAttributes(
			attribute.String("chain.name", c.name),
			attribute.String("chain.run_id", run.ID),
			attribute.Int("chain.workers", c.workers),
			attribute.Int("chain.units", len(c.units)),
		))
	defer span.End()

	c.stats.reset()
	filter, _ := src.Filter()
	c.logger.Info("Starting chain run",
		zap.String("chain", c.name),
		zap.String("runID", run.ID),
		zap.Int("workers", c.workers),
		zap.Int("units", len(c.units)),
		zap.Stringer("filter", filter))

	artifacts := make(chan *model.Artifact, c.queueSize)

	var g errgroup.Group
	g.Go(func() error {
		defer close(artifacts)
		return src.scan(ctx, artifacts)
	})
	for i := 0; i < c.workers; i++ {
		workerID := i
		g.Go(func() error {
			c.worker(ctx, workerID, src.Kind(), stages, collector, artifacts)
			return nil
		})
	}
	runErr := g.Wait()

	run.Duration = time.Since(run.StartedAt)
	results := collector.Result()
	st := c.Stats()
	span.SetAttributes(
		attribute.Int64("chain.processed", st.Processed),
		attribute.Int64("chain.filtered", st.Filtered),
		attribute.Int64("chain.failed", st.Failed),
	)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		c.logger.Error("Chain run aborted by source",
			zap.String("chain", c.name),
			zap.String("runID", run.ID),
			zap.Error(runErr))
	} else {
		span.SetStatus(codes.Ok, "chain run completed")
		c.logger.Info("Chain run completed",
			zap.String("chain", c.name),
			zap.String("runID", run.ID),
			zap.Int("collected", len(results)),
			zap.Int64("processed", st.Processed),
			zap.Int64("filtered", st.Filtered),
			zap.Int64("failed", st.Failed),
			zap.Duration("duration", run.Duration))
	}

	if c.observer != nil {
		if postErr := c.observer.AfterRun(ctx, run, results, runErr); postErr != nil && runErr == nil {
			runErr = fmt.Errorf("after run: %w", postErr)
		}
	}
	return results, runErr
}

// endpoints checks the source and collector positions.
func (c *Chain) endpoints() (*SourceUnit, *Collector, error) {
	if len(c.units) < 2 {
		return nil, nil, mcerrors.Configuration("chain needs a source and a collector, has %d units", len(c.units))
	}
	src, ok := c.First().(*SourceUnit)
	if !ok {
		return nil, nil, mcerrors.Configuration("first unit %q is not a source", c.First().Name())
	}
	if err := src.validate(); err != nil {
		return nil, nil, err
	}
	collector, ok := c.Last().(*Collector)
	if !ok {
		return nil, nil, mcerrors.Configuration("last unit %q is not a collector", c.Last().Name())
	}
	return src, collector, nil
}

func (c *Chain) worker(ctx context.Context, workerID int, kind PayloadKind, stages []Unit, collector *Collector, artifacts <-chan *model.Artifact) {
	c.logger.Debug("Worker started", zap.Int("workerID", workerID))
	defer c.logger.Debug("Worker stopped", zap.Int("workerID", workerID))

	for a := range artifacts {
		c.processArtifact(ctx, workerID, kind, stages, collector, a)
	}
}

// processArtifact runs one artifact through stages. The last stage is the collector.
// A nil artifact from the source is recorded as an invalid-input failure.
func (c *Chain) processArtifact(ctx context.Context, workerID int, kind PayloadKind, stages []Unit, collector *Collector, a *model.Artifact) {
	start := time.Now()
	if a == nil {
		c.recordFailure(ctx, workerID, collector, &Payload{Kind: kind}, sourceUnitName, mcerrors.InvalidInput(sourceUnitName), start)
		return
	}

	ctx, span := c.tracer.Start(ctx, "chain.processArtifact",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("artifact.id", a.ID),
			attribute.String("artifact.notation", string(a.Notation)),
		))
	defer span.End()

	p := NewPayload(a, kind)
	last, failedUnit, err := runStages(ctx, p, stages)
	if err == nil {
		if last.Empty() {
			c.stats.filtered.Add(1)
		} else {
			c.stats.processed.Add(1)
		}
		span.SetAttributes(attribute.Bool("artifact.filtered", last.Empty()))
		span.SetStatus(codes.Ok, "artifact processed")
		return
	}

	itemErr := c.recordFailure(ctx, workerID, collector, last, failedUnit, err, start)
	span.RecordError(itemErr)
	span.SetStatus(codes.Error, itemErr.Error())
}

// recordFailure turns p into a failure marker, logs and reports it, and hands
// it to the collector.
func (c *Chain) recordFailure(ctx context.Context, workerID int, collector *Collector, p *Payload, unit string, err error, start time.Time) *mcerrors.ItemError {
	itemErr := &mcerrors.ItemError{SourceID: p.SourceID, Unit: unit, Err: err}
	p.Clear()
	p.Err = itemErr
	c.stats.failed.Add(1)

	c.logger.Error("Error processing artifact",
		zap.Int("workerID", workerID),
		zap.String("sourceID", p.SourceID),
		zap.String("unit", unit),
		zap.String("code", mcerrors.Code(err)),
		zap.Duration("processingTime", time.Since(start)),
		zap.Error(err))
	if c.reporter != nil {
		c.reporter.ReportFailure(ctx, itemErr)
	}
	if _, err := collector.Execute(ctx, p); err != nil {
		c.logger.Error("Collector rejected failure marker", zap.String("sourceID", p.SourceID), zap.Error(err))
	}
	return itemErr
}

// runStages executes units in order. It returns the last non-nil payload, the
// name of the failing unit and its error. A panic in a unit is turned into an error.
func runStages(ctx context.Context, p *Payload, units []Unit) (last *Payload, failedUnit string, err error) {
	last = p
	cur := p
	for _, u := range units {
		next, err := safeExecute(ctx, u, cur)
		if err != nil {
			return last, u.Name(), err
		}
		if next != nil {
			last = next
		}
		cur = next
	}
	return last, "", nil
}

func safeExecute(ctx context.Context, u Unit, p *Payload) (out *Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit %q panicked: %v", u.Name(), r)
		}
	}()
	return u.Execute(ctx, p)
}
