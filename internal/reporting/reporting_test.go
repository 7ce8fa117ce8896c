package reporting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Flush(time.Duration) bool               { return true }
func (t *recordingTransport) FlushWithContext(context.Context) bool  { return true }
func (t *recordingTransport) Configure(sentry.ClientOptions)         {}
func (t *recordingTransport) Close()                                 {}
func (t *recordingTransport) SendEvent(e *sentry.Event) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

func TestSentryReporterTagsFailure(t *testing.T) {
	transport := &recordingTransport{}
	r, err := NewSentryReporter(SentryConfig{
		DSN:         "https://public@sentry.example.com/1",
		Environment: "test",
		Transport:   transport,
	})
	require.NoError(t, err)

	r.ReportFailure(context.Background(), &mcerrors.ItemError{
		SourceID: "a7",
		Unit:     "parse",
		Err:      errors.New("unexpected end of JSON input"),
	})
	assert.True(t, r.Flush(time.Second))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.events, 1)
	ev := transport.events[0]
	assert.Equal(t, "a7", ev.Tags["source_id"])
	assert.Equal(t, "parse", ev.Tags["unit"])
	assert.Equal(t, mcerrors.CodeUnknown, ev.Tags["code"])
	assert.Equal(t, sentry.LevelError, ev.Level)
}

func TestSentryReporterRejectsBadDSN(t *testing.T) {
	_, err := NewSentryReporter(SentryConfig{DSN: "::not a dsn"})
	assert.Error(t, err)
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewLogReporter(zap.New(core))

	r.ReportFailure(context.Background(), &mcerrors.ItemError{
		SourceID: "a1",
		Unit:     "conformance-check",
		Err:      mcerrors.Unsupported("conformance-check"),
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Artifact failed", entry.Message)
	assert.Equal(t, mcerrors.CodeUnsupportedOperation, entry.ContextMap()["code"])
	assert.Equal(t, "a1", entry.ContextMap()["sourceID"])
}
