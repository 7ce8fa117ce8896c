package chain

import (
	"sort"

	"github.com/wehubfusion/modelchain/pkg/model"
)

// Facet names an auxiliary view attached to a payload by one unit for a later
// unit to reuse.
type Facet string

const (
	FacetArtifact     Facet = "artifact"
	FacetDiagram      Facet = "diagram"
	FacetProcessModel Facet = "process-model"
	FacetPetriNet     Facet = "petri-net"
	FacetLabelMap     Facet = "label-map"
	FacetMetadata     Facet = "metadata"
	FacetMetrics      Facet = "metrics"
	FacetFeatures     Facet = "features"
	FacetSubtype      Facet = "subtype"
)

// PayloadKind selects what the data source places in a fresh payload.
type PayloadKind int

const (
	// KindRaw payloads start with the stored artifact as their value.
	KindRaw PayloadKind = iota
	// KindMetadata payloads start with the artifact's metadata map as their
	// value, for scans that filter on metadata without parsing content.
	KindMetadata
)

func (k PayloadKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindMetadata:
		return "metadata"
	}
	return "unknown"
}

// category returns the output category of a source producing payloads of kind k.
func (k PayloadKind) category() (Category, bool) {
	switch k {
	case KindRaw:
		return CategoryRaw, true
	case KindMetadata:
		return CategoryMetadataMap, true
	}
	return CategoryAny, false
}

// Payload carries one artifact through a chain. Value holds the current stage's
// data; a nil Value is the filtered-out state. Facets are set once and never
// cleared. A failed run leaves Err set and Value empty.
type Payload struct {
	Value    any
	Category Category
	SourceID string
	Kind     PayloadKind
	Err      error

	facets map[Facet]any
}

// NewPayload wraps an artifact as the engine does for each scanned item.
func NewPayload(a *model.Artifact, kind PayloadKind) *Payload {
	p := &Payload{SourceID: a.ID, Kind: kind}
	p.SetFacet(FacetArtifact, a)
	switch kind {
	case KindMetadata:
		md := model.Metadata(a.Describe())
		p.SetFacet(FacetMetadata, md)
		p.Set(md, CategoryMetadataMap)
	default:
		p.Set(a, CategoryRaw)
	}
	return p
}

// Empty reports whether the payload has been filtered out (or failed).
func (p *Payload) Empty() bool { return p.Value == nil }

// Failed reports whether the payload records a processing failure.
func (p *Payload) Failed() bool { return p.Err != nil }

// Set replaces the value and its category.
func (p *Payload) Set(v any, c Category) {
	p.Value = v
	p.Category = c
}

// Clear moves the payload into the filtered-out state. Facets stay.
func (p *Payload) Clear() {
	p.Value = nil
}

// SetFacet attaches v under name. A facet that is already present is kept and
// SetFacet reports false.
func (p *Payload) SetFacet(name Facet, v any) bool {
	if p.facets == nil {
		p.facets = make(map[Facet]any, 4)
	}
	if _, ok := p.facets[name]; ok {
		return false
	}
	p.facets[name] = v
	return true
}

// Facet returns the facet stored under name.
func (p *Payload) Facet(name Facet) (any, bool) {
	v, ok := p.facets[name]
	return v, ok
}

// HasFacet reports whether a facet is attached under name.
func (p *Payload) HasFacet(name Facet) bool {
	_, ok := p.facets[name]
	return ok
}

// Facets returns the attached facet names in sorted order.
func (p *Payload) Facets() []Facet {
	out := make([]Facet, 0, len(p.facets))
	for f := range p.facets {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Artifact returns the source artifact.
func (p *Payload) Artifact() (*model.Artifact, bool) {
	return FacetAs[*model.Artifact](p, FacetArtifact)
}

// ProcessModel resolves the payload's process model from the value or, for
// refined categories, from the process-model facet.
func (p *Payload) ProcessModel() (*model.ProcessModel, bool) {
	if pm, ok := p.Value.(*model.ProcessModel); ok {
		return pm, true
	}
	return FacetAs[*model.ProcessModel](p, FacetProcessModel)
}

// Metadata returns the metadata facet.
func (p *Payload) Metadata() (model.Metadata, bool) {
	return FacetAs[model.Metadata](p, FacetMetadata)
}

// FacetAs returns the facet stored under name converted to T.
func FacetAs[T any](p *Payload, name Facet) (T, bool) {
	var zero T
	v, ok := p.facets[name]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
