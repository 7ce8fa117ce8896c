// Package runs persists and announces the outcome of chain runs. Recorder is
// a chain.Observer: after every run it writes a result file to blob storage
// and publishes a run event.
package runs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	natsconn "github.com/wehubfusion/modelchain/internal/nats"
	"github.com/wehubfusion/modelchain/pkg/chain"
	"github.com/wehubfusion/modelchain/pkg/config"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/notify"
	"github.com/wehubfusion/modelchain/pkg/storage"
)

// Recorder writes result files and publishes run events. Either collaborator
// may be nil to skip that step.
type Recorder struct {
	results   *storage.ResultFileClient
	publisher notify.Publisher
	logger    *zap.Logger
}

// NewRecorder creates a recorder.
func NewRecorder(results *storage.ResultFileClient, publisher notify.Publisher, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{results: results, publisher: publisher, logger: logger}
}

// Open builds a recorder from cfg. Result files go to the configured blob
// container when the blob store is used and are kept in memory otherwise;
// events are published when a NATS URL is set. The returned function releases
// the connections.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Recorder, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var blobs storage.BlobClient
	if cfg.StoreBackend == config.StoreBlob {
		client, err := storage.NewAzureBlobClient(cfg.BlobConnectionString, cfg.BlobContainer, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open result storage: %w", err)
		}
		blobs = client
	} else {
		blobs = storage.NewMemoryBlobClient()
	}
	results := storage.NewResultFileClient(blobs, cfg.ResultPrefix, logger)

	closeFn := func() error { return nil }
	var publisher notify.Publisher
	if cfg.NATSURL != "" {
		conn, err := natsconn.Connect(ctx, natsconn.DefaultConnectionConfig(cfg.NATSURL), logger)
		if err != nil {
			return nil, nil, err
		}
		publisher = notify.NewNATSPublisher(conn, cfg.NATSSubject, logger)
		closeFn = func() error { return natsconn.Close(conn) }
	}

	return NewRecorder(results, publisher, logger), closeFn, nil
}

func (r *Recorder) BeforeRun(_ context.Context, run chain.Run) error {
	r.logger.Debug("Run starting",
		zap.String("chain", run.Chain),
		zap.String("run_id", run.ID),
		zap.Int("workers", run.Workers))
	return nil
}

// AfterRun writes the result file, then publishes the run event with the
// file's URL. A failed write does not stop the event.
func (r *Recorder) AfterRun(ctx context.Context, run chain.Run, results []*chain.Payload, runErr error) error {
	rf := ResultFile(run, results, runErr)

	var errs []error
	var url string
	if r.results != nil {
		u, err := r.results.Write(ctx, rf)
		if err != nil {
			r.logger.Error("Failed to write result file", zap.String("run_id", run.ID), zap.Error(err))
			errs = append(errs, err)
		}
		url = u
	}

	if r.publisher != nil {
		event := &notify.RunEvent{
			Chain:      rf.Chain,
			RunID:      rf.RunID,
			StartedAt:  rf.StartedAt,
			DurationMs: rf.DurationMs,
			Summary:    rf.Summary,
			RunError:   rf.RunError,
			ResultURL:  url,
		}
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Error("Failed to publish run event", zap.String("run_id", run.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResultFile converts collected payloads into a result file.
func ResultFile(run chain.Run, results []*chain.Payload, runErr error) *storage.ResultFile {
	s := chain.Summarize(results)
	rf := &storage.ResultFile{
		Chain:      run.Chain,
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		DurationMs: run.Duration.Milliseconds(),
		Summary: storage.RunSummary{
			Total:    s.Total,
			Passed:   s.Passed,
			Filtered: s.Filtered,
			Failed:   s.Failed,
		},
		Items: make(map[string]*storage.ItemResult, len(results)),
	}
	if runErr != nil {
		rf.RunError = runErr.Error()
	}
	for _, p := range results {
		rf.Items[p.SourceID] = itemResult(p)
	}
	return rf
}

func itemResult(p *chain.Payload) *storage.ItemResult {
	item := &storage.ItemResult{}
	for _, f := range p.Facets() {
		item.Facets = append(item.Facets, string(f))
	}
	switch {
	case p.Failed():
		item.Status = storage.StatusFailed
		itemErr := &storage.ItemError{Code: mcerrors.Code(p.Err), Message: p.Err.Error()}
		var ie *mcerrors.ItemError
		if errors.As(p.Err, &ie) {
			itemErr.Unit = ie.Unit
			itemErr.Message = ie.Err.Error()
		}
		item.Error = itemErr
	case p.Empty():
		item.Status = storage.StatusFiltered
	default:
		item.Status = storage.StatusPassed
		item.Category = p.Category.String()
	}
	return item
}
