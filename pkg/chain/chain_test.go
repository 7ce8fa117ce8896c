package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
)

func TestAccepts(t *testing.T) {
	tests := []struct {
		in, out Category
		want    bool
	}{
		{CategoryRaw, CategoryRaw, true},
		{CategoryAny, CategoryRaw, true},
		{CategoryAny, CategoryFeatureVector, true},
		{CategoryProcessModel, CategoryProcessModel, true},
		{CategoryProcessModel, CategoryPetriNet, true},
		{CategoryProcessModel, CategoryLabelMap, true},
		{CategoryProcessModel, CategoryMetadataMap, true},
		{CategoryProcessModel, CategoryProcessModelSubtype, true},
		{CategoryProcessModel, CategoryMetricsRecord, true},
		{CategoryProcessModel, CategoryFeatureVector, true},
		{CategoryRaw, CategoryProcessModel, false},
		{CategoryRaw, CategoryDiagram, false},
		{CategoryDiagram, CategoryProcessModel, false},
		{CategoryPetriNet, CategoryProcessModel, false},
		{CategoryLabelMap, CategoryPetriNet, false},
		{CategoryRaw, CategoryAny, false},
		{Category(-1), CategoryRaw, false},
		{CategoryRaw, numCategories, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Accepts(tt.in, tt.out), "%s accepts %s", tt.in, tt.out)
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "raw-representation", CategoryRaw.String())
	assert.Equal(t, "process-model-subtype", CategoryProcessModelSubtype.String())
	assert.Equal(t, "unknown", numCategories.String())
}

func TestPayloadFacetsAreSetOnce(t *testing.T) {
	p := NewPayload(epc("a1", connectedEPC), KindRaw)
	assert.Equal(t, CategoryRaw, p.Category)
	assert.Equal(t, "a1", p.SourceID)

	assert.True(t, p.SetFacet(FacetLabelMap, model.LabelMap{"a": {"n1"}}))
	assert.False(t, p.SetFacet(FacetLabelMap, model.LabelMap{"b": {"n2"}}))
	labels, ok := FacetAs[model.LabelMap](p, FacetLabelMap)
	require.True(t, ok)
	assert.Equal(t, model.LabelMap{"a": {"n1"}}, labels)

	p.Clear()
	assert.True(t, p.Empty())
	assert.False(t, p.Failed())
	assert.Equal(t, []Facet{FacetArtifact, FacetLabelMap}, p.Facets())

	_, ok = FacetAs[*model.PetriNet](p, FacetLabelMap)
	assert.False(t, ok, "wrong facet type")
}

func TestMetadataPayload(t *testing.T) {
	p := NewPayload(epc("a1", connectedEPC), KindMetadata)
	assert.Equal(t, CategoryMetadataMap, p.Category)
	md, ok := p.Metadata()
	require.True(t, ok)
	assert.Equal(t, "finance", md["department"])
	assert.Equal(t, "sap", md["origin"])
}

func TestUnitsRejectNilPayload(t *testing.T) {
	ctx := context.Background()
	units := []Unit{
		NewUnit("u", CategoryAny, CategoryAny, func(context.Context, *Payload) error { return nil }),
		NewFilter("f", CategoryAny, func(context.Context, *Payload) (bool, error) { return true, nil }),
		NewStub("s", CategoryAny, CategoryAny),
		NewCollector(),
		NewSourceUnit(nil, KindRaw),
		ParseUnit(),
		ConnectednessFilter(),
	}
	for _, u := range units {
		_, err := u.Execute(ctx, nil)
		assert.True(t, mcerrors.IsInvalidInput(err), u.Name())
	}
}

func TestEmptyPayloadPassesThrough(t *testing.T) {
	ctx := context.Background()
	called := false
	unit := NewUnit("u", CategoryAny, CategoryAny, func(context.Context, *Payload) error {
		called = true
		return nil
	})
	filter := NewFilter("f", CategoryAny, func(context.Context, *Payload) (bool, error) {
		called = true
		return true, nil
	})

	for _, u := range []Unit{unit, filter, NewStub("s", CategoryAny, CategoryAny), ParseUnit()} {
		p := NewPayload(epc("a1", connectedEPC), KindRaw)
		p.Clear()
		out, err := u.Execute(ctx, p)
		require.NoError(t, err, u.Name())
		assert.Same(t, p, out, u.Name())
		assert.True(t, out.Empty(), u.Name())
	}
	assert.False(t, called, "empty payloads never reach transform or predicate")
}

func TestFilterClearsFailingPayloads(t *testing.T) {
	ctx := context.Background()
	keepA1 := NewFilter("keep-a1", CategoryRaw, func(_ context.Context, p *Payload) (bool, error) {
		return p.SourceID == "a1", nil
	})
	assert.True(t, IsFilter(keepA1))
	assert.False(t, IsFilter(ParseUnit()))

	kept, err := keepA1.Execute(ctx, NewPayload(epc("a1", connectedEPC), KindRaw))
	require.NoError(t, err)
	assert.False(t, kept.Empty())

	dropped, err := keepA1.Execute(ctx, NewPayload(epc("a2", connectedEPC), KindRaw))
	require.NoError(t, err)
	assert.True(t, dropped.Empty())
	assert.True(t, dropped.HasFacet(FacetArtifact), "facets survive filtering")

	boom := errors.New("boom")
	failing := NewFilter("failing", CategoryRaw, func(context.Context, *Payload) (bool, error) { return false, boom })
	_, err = failing.Execute(ctx, NewPayload(epc("a3", connectedEPC), KindRaw))
	assert.ErrorIs(t, err, boom)

	empty := NewPayload(epc("a3", connectedEPC), KindRaw)
	empty.Clear()
	out, err := failing.Execute(ctx, empty)
	require.NoError(t, err, "an empty payload passes through without the predicate")
	assert.True(t, out.Empty())
	assert.Nil(t, out.Err)
}

func TestStubIsUnsupported(t *testing.T) {
	_, err := NewStub(UnitConformanceCheck, CategoryPetriNet, CategoryPetriNet).
		Execute(context.Background(), NewPayload(epc("a1", connectedEPC), KindRaw))
	assert.True(t, mcerrors.IsUnsupported(err))
}

func TestDomainUnitsAttachFacets(t *testing.T) {
	ctx := context.Background()
	p := NewPayload(epc("a1", connectedEPC), KindRaw)
	units := []Unit{
		ParseUnit(),
		ConvertUnit(),
		ExtractLabelsUnit(),
		ClassifyUnit(),
		MetricsUnit(),
		FeaturesUnit(),
		ExtractMetadataUnit(),
	}
	for _, u := range units {
		var err error
		p, err = u.Execute(ctx, p)
		require.NoError(t, err, u.Name())
		assert.Equal(t, u.OutputCategory(), p.Category, u.Name())
	}

	want := []Facet{
		FacetArtifact, FacetDiagram, FacetFeatures, FacetLabelMap,
		FacetMetadata, FacetMetrics, FacetProcessModel, FacetSubtype,
	}
	if diff := cmp.Diff(want, p.Facets()); diff != "" {
		t.Errorf("facets mismatch (-want +got):\n%s", diff)
	}

	md, ok := p.Value.(model.Metadata)
	require.True(t, ok)
	assert.Equal(t, int64(5), md["nodes"])

	st, ok := FacetAs[model.Subtype](p, FacetSubtype)
	require.True(t, ok)
	assert.Equal(t, model.ClassExclusive, st.Class)

	metrics, ok := FacetAs[model.MetricsRecord](p, FacetMetrics)
	require.True(t, ok)
	assert.Equal(t, 4, metrics.Edges)
}

func TestParseUnitRejectsWrongValue(t *testing.T) {
	p := &Payload{Value: "not an artifact", SourceID: "x"}
	_, err := ParseUnit().Execute(context.Background(), p)
	assert.ErrorContains(t, err, `unit "parse" expects`)
}

func TestCollectorRecordsEveryPayload(t *testing.T) {
	ctx := context.Background()
	c := NewCollector()

	const n = 100
	payloads := make([]*Payload, n)
	for i := range payloads {
		payloads[i] = &Payload{Value: i, SourceID: "p"}
		if i%3 == 0 {
			payloads[i].Clear()
		}
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Execute(ctx, p)
			assert.NoError(t, err)
			assert.Same(t, p, out)
		}()
	}
	wg.Wait()

	result := c.Result()
	require.Len(t, result, n)
	seen := make(map[*Payload]int, n)
	for _, p := range result {
		seen[p]++
	}
	for _, p := range payloads {
		assert.Equal(t, 1, seen[p])
	}
	assert.Equal(t, Summary{Total: n, Passed: 66, Filtered: 34}, c.Summary())

	c.Reset()
	assert.Empty(t, c.Result())
	assert.Equal(t, 0, c.Len())
}

func TestChainPrimitivesDoNotValidate(t *testing.T) {
	c := New(WithName("hand-built"))
	assert.Nil(t, c.First())
	assert.Nil(t, c.Last())

	features := FeaturesUnit()
	parse := ParseUnit()
	c.Append(features)
	c.AppendAll(parse, NewCollector())

	assert.Equal(t, 3, c.Len())
	assert.Same(t, features, c.First())
	assert.Equal(t, []string{UnitFeatures, UnitParse, "collector"}, unitNames(c))

	units := c.Units()
	units[0] = nil
	assert.Same(t, features, c.First(), "Units returns a copy")
}

func TestMultiObserver(t *testing.T) {
	ctx := context.Background()
	first := &recordingObserver{afterErr: errors.New("first")}
	second := &recordingObserver{beforeErr: errors.New("stop")}
	third := &recordingObserver{}
	o := MultiObserver(first, second, third)

	err := o.BeforeRun(ctx, Run{ID: "r1"})
	assert.EqualError(t, err, "stop")
	assert.Len(t, third.before, 0)

	err = o.AfterRun(ctx, Run{ID: "r1"}, nil, nil)
	assert.EqualError(t, err, "first")
	assert.Len(t, third.after, 1)
}
