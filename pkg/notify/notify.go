// Package notify announces finished chain runs to other services.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wehubfusion/modelchain/pkg/storage"
)

// RunEvent is the message published once a run has finished.
type RunEvent struct {
	Chain      string             `json:"chain"`
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	DurationMs int64              `json:"duration_ms"`
	Summary    storage.RunSummary `json:"summary"`
	RunError   string             `json:"run_error,omitempty"`
	ResultURL  string             `json:"result_url,omitempty"`
}

// Publisher delivers run events.
type Publisher interface {
	Publish(ctx context.Context, event *RunEvent) error
}

// RunIDHeader carries the run ID on published messages.
const RunIDHeader = "Modelchain-Run-Id"

// NATSPublisher publishes run events as JSON to a NATS subject. Events go to
// "<subject>.<chain>" so consumers can subscribe to one chain or, with
// "<subject>.>", to all of them.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewNATSPublisher creates a publisher on conn.
func NewNATSPublisher(conn *nats.Conn, subject string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

// Subject returns the subject events of chainName are published to.
func (p *NATSPublisher) Subject(chainName string) string {
	return p.subject + "." + chainName
}

func (p *NATSPublisher) Publish(ctx context.Context, event *RunEvent) error {
	if p.conn == nil {
		return fmt.Errorf("NATS connection not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(event.Chain))
	msg.Data = data
	msg.Header.Set(RunIDHeader, event.RunID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	p.logger.Info("Published run event",
		zap.String("subject", msg.Subject),
		zap.String("run_id", event.RunID),
		zap.Int("failed", event.Summary.Failed))
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []*RunEvent
}

func (r *Recorder) Publish(_ context.Context, event *RunEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Events returns the recorded events in publish order.
func (r *Recorder) Events() []*RunEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*RunEvent(nil), r.events...)
}
