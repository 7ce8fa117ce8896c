package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/modelchain/pkg/chain"
	"github.com/wehubfusion/modelchain/pkg/config"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
	"github.com/wehubfusion/modelchain/pkg/notify"
	"github.com/wehubfusion/modelchain/pkg/storage"
	"github.com/wehubfusion/modelchain/pkg/store"
)

const connected = `{"nodes": [{"id": "e1", "kind": "event"}, {"id": "f1", "kind": "function"}], "edges": [{"from": "e1", "to": "f1"}]}`
const disconnected = `{"nodes": [{"id": "e1", "kind": "event"}, {"id": "f1", "kind": "function"}], "edges": []}`

func artifact(id, content string) *model.Artifact {
	return &model.Artifact{
		ID:       id,
		ModelID:  id,
		Origin:   model.OriginBPMAI,
		Notation: model.NotationEPC,
		Format:   model.FormatJSON,
		Content:  []byte(content),
	}
}

func TestRecorderWritesAndPublishes(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryStore(nil,
		artifact("a1", connected),
		artifact("a2", disconnected),
		artifact("a3", `not json`),
	)
	require.NoError(t, src.Open(ctx))

	blobs := storage.NewMemoryBlobClient()
	files := storage.NewResultFileClient(blobs, "results/", nil)
	events := &notify.Recorder{}
	recorder := NewRecorder(files, events, nil)

	b := chain.NewBuilderWithSource(src, 2, chain.KindRaw,
		chain.WithName("connected"),
		chain.WithObserver(recorder))
	b.SetSourceFilter(model.NewFilter(model.OriginBPMAI))
	require.NoError(t, b.CreateParseAndConvert())
	require.NoError(t, b.CreateConnectednessFilter())

	_, err := b.Chain().Execute(ctx)
	require.NoError(t, err)

	published := events.Events()
	require.Len(t, published, 1)
	event := published[0]
	assert.Equal(t, "connected", event.Chain)
	assert.Equal(t, storage.RunSummary{Total: 3, Passed: 1, Filtered: 1, Failed: 1}, event.Summary)
	assert.Equal(t, "memory://results/connected/"+event.RunID+"/results.json", event.ResultURL)

	rf, err := files.Read(ctx, "connected", event.RunID)
	require.NoError(t, err)
	require.Len(t, rf.Items, 3)
	assert.Equal(t, storage.StatusPassed, rf.Items["a1"].Status)
	assert.Equal(t, "process-model", rf.Items["a1"].Category)
	assert.Contains(t, rf.Items["a1"].Facets, "process-model")
	assert.Equal(t, storage.StatusFiltered, rf.Items["a2"].Status)
	assert.Equal(t, storage.StatusFailed, rf.Items["a3"].Status)
	require.NotNil(t, rf.Items["a3"].Error)
	assert.Equal(t, chain.UnitParse, rf.Items["a3"].Error.Unit)
	assert.Equal(t, mcerrors.CodeItemProcessing, rf.Items["a3"].Error.Code)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *notify.RunEvent) error {
	return errors.New("no responders")
}

func TestRecorderReportsPublishFailure(t *testing.T) {
	files := storage.NewResultFileClient(storage.NewMemoryBlobClient(), "results/", nil)
	r := NewRecorder(files, failingPublisher{}, nil)

	run := chain.Run{ID: "r1", Chain: "c", StartedAt: time.Now(), Duration: 1500 * time.Millisecond}
	err := r.AfterRun(context.Background(), run, nil, nil)
	assert.ErrorContains(t, err, "no responders")

	rf, err := files.Read(context.Background(), "c", "r1")
	require.NoError(t, err, "the file is written even when publishing fails")
	assert.Equal(t, int64(1500), rf.DurationMs)
}

func TestResultFileRecordsRunError(t *testing.T) {
	p := &chain.Payload{SourceID: "a1", Err: mcerrors.Unsupported("conformance-check")}
	rf := ResultFile(chain.Run{ID: "r1", Chain: "c"}, []*chain.Payload{p}, errors.New("source scan: reset"))

	assert.Equal(t, "source scan: reset", rf.RunError)
	assert.Equal(t, storage.RunSummary{Total: 1, Failed: 1}, rf.Summary)
	assert.Equal(t, mcerrors.CodeUnsupportedOperation, rf.Items["a1"].Error.Code)
}

func TestOpenWithoutNATS(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.StoreMemory, ResultPrefix: "results/"}
	r, closeFn, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, r.publisher)
	assert.NotNil(t, r.results)
	assert.NoError(t, closeFn())
}
