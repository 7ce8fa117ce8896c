package chain

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/modelchain/pkg/analysis"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
	"github.com/wehubfusion/modelchain/pkg/store"
)

const connectedEPC = `{
  "nodes": [
    {"id": "e1", "kind": "event", "label": "Invoice received"},
    {"id": "f1", "kind": "function", "label": "Check invoice"},
    {"id": "x1", "kind": "xor"},
    {"id": "e2", "kind": "event", "label": "Invoice approved"},
    {"id": "e3", "kind": "event", "label": "Invoice rejected"}
  ],
  "edges": [
    {"from": "e1", "to": "f1"},
    {"from": "f1", "to": "x1"},
    {"from": "x1", "to": "e2"},
    {"from": "x1", "to": "e3"}
  ]
}`

const parallelEPC = `{
  "nodes": [
    {"id": "e1", "kind": "event", "label": "Order received"},
    {"id": "a1", "kind": "and"},
    {"id": "f1", "kind": "function", "label": "Pack goods"},
    {"id": "f2", "kind": "function", "label": "Write invoice"}
  ],
  "edges": [
    {"from": "e1", "to": "a1"},
    {"from": "a1", "to": "f1"},
    {"from": "a1", "to": "f2"}
  ]
}`

const disconnectedEPC = `{
  "nodes": [
    {"id": "e1", "kind": "event", "label": "Claim filed"},
    {"id": "f1", "kind": "function", "label": "Assess claim"},
    {"id": "e2", "kind": "event", "label": "Claim archived"}
  ],
  "edges": [
    {"from": "e1", "to": "f1"}
  ]
}`

func epc(id, content string) *model.Artifact {
	return &model.Artifact{
		ID:       id,
		ModelID:  "model-" + id,
		Revision: 1,
		Origin:   model.OriginSAP,
		Notation: model.NotationEPC,
		Format:   model.FormatJSON,
		Content:  []byte(content),
		Metadata: map[string]any{"department": "finance"},
	}
}

// fixtureArtifacts has two connected and one disconnected SAP EPC model, plus
// artifacts the SAP/EPC/JSON filter must skip.
func fixtureArtifacts() []*model.Artifact {
	bpmn := epc("b1", connectedEPC)
	bpmn.Notation = model.NotationBPMN
	ibm := epc("i1", connectedEPC)
	ibm.Origin = model.OriginIBM
	xml := epc("x1", "<epc/>")
	xml.Format = model.FormatXML
	return []*model.Artifact{
		epc("a1", connectedEPC),
		epc("a2", parallelEPC),
		epc("a3", disconnectedEPC),
		bpmn, ibm, xml,
	}
}

func sapEPCFilter() model.FilterConfig {
	return model.NewFilter(model.OriginSAP).
		WithNotations(model.NotationEPC).
		WithFormats(model.FormatJSON)
}

func openMemoryStore(t *testing.T, artifacts ...*model.Artifact) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(nil, artifacts...)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newFixtureBuilder(t *testing.T, workers int, opts ...Option) *Builder {
	t.Helper()
	b := NewBuilderWithSource(openMemoryStore(t, fixtureArtifacts()...), workers, KindRaw, opts...)
	b.SetSourceFilter(sapEPCFilter())
	return b
}

func unitNames(c *Chain) []string {
	names := make([]string, 0, c.Len())
	for _, u := range c.Units() {
		names = append(names, u.Name())
	}
	return names
}

func assertSameUnits(t *testing.T, want, got []Unit) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Same(t, want[i], got[i], "unit %d", i)
	}
}

// byID indexes collected payloads by source ID and fails on duplicates.
func byID(t *testing.T, results []*Payload) map[string]*Payload {
	t.Helper()
	out := make(map[string]*Payload, len(results))
	for _, p := range results {
		_, dup := out[p.SourceID]
		require.False(t, dup, "payload %s collected twice", p.SourceID)
		out[p.SourceID] = p
	}
	return out
}

type recordingReporter struct {
	mu       sync.Mutex
	failures []*mcerrors.ItemError
}

func (r *recordingReporter) ReportFailure(_ context.Context, f *mcerrors.ItemError) {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

func (r *recordingReporter) Failures() []*mcerrors.ItemError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*mcerrors.ItemError(nil), r.failures...)
}

type recordingObserver struct {
	mu        sync.Mutex
	before    []Run
	after     []Run
	collected []int
	runErrs   []error
	beforeErr error
	afterErr  error
}

func (o *recordingObserver) BeforeRun(_ context.Context, run Run) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.before = append(o.before, run)
	return o.beforeErr
}

func (o *recordingObserver) AfterRun(_ context.Context, run Run, results []*Payload, runErr error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.after = append(o.after, run)
	o.collected = append(o.collected, len(results))
	o.runErrs = append(o.runErrs, runErr)
	return o.afterErr
}

// failingSource yields its artifacts and then fails the scan.
type failingSource struct {
	*store.MemoryStore
	err error
}

func (s *failingSource) LoadMatching(ctx context.Context, filter model.FilterConfig, sink chan<- *model.Artifact) error {
	if err := s.MemoryStore.LoadMatching(ctx, filter, sink); err != nil {
		return err
	}
	return s.err
}

// nilSource yields its artifacts followed by a nil artifact.
type nilSource struct {
	*store.MemoryStore
}

func (s *nilSource) LoadMatching(ctx context.Context, filter model.FilterConfig, sink chan<- *model.Artifact) error {
	if err := s.MemoryStore.LoadMatching(ctx, filter, sink); err != nil {
		return err
	}
	select {
	case sink <- nil:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func manyArtifacts(n int) []*model.Artifact {
	out := make([]*model.Artifact, n)
	for i := range out {
		content := connectedEPC
		if i%5 == 0 {
			content = disconnectedEPC
		}
		out[i] = epc(fmt.Sprintf("m%03d", i), content)
	}
	return out
}

func mustMetadataExpr(t *testing.T, expr string) *analysis.MetadataExpr {
	t.Helper()
	e, err := analysis.CompileMetadataExpr(expr)
	require.NoError(t, err)
	return e
}
