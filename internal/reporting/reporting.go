// Package reporting forwards per-artifact chain failures to an error tracker.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

// LogReporter logs failures at warn level. The engine already logs each
// failure at error level with worker details; this adds the failure code.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a reporter writing to logger.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ReportFailure(_ context.Context, failure *mcerrors.ItemError) {
	r.logger.Warn("Artifact failed",
		zap.String("sourceID", failure.SourceID),
		zap.String("unit", failure.Unit),
		zap.String("code", mcerrors.Code(failure.Err)),
		zap.Error(failure.Err))
}

// SentryConfig configures the Sentry reporter.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	// Transport replaces the HTTP transport, e.g. with a recording one in tests.
	Transport sentry.Transport
}

// SentryReporter captures failures as Sentry events tagged with the source
// artifact, the failing unit and the error code. It uses its own hub so it
// never touches the global Sentry state.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter creates a reporter with its own Sentry client.
func NewSentryReporter(cfg SentryConfig) (*SentryReporter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		Transport:   cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (r *SentryReporter) ReportFailure(_ context.Context, failure *mcerrors.ItemError) {
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTags(map[string]string{
			"source_id": failure.SourceID,
			"unit":      failure.Unit,
			"code":      mcerrors.Code(failure.Err),
		})
		hub.CaptureException(failure)
	})
}

// Flush waits up to timeout for buffered events to be sent.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}
