package chain

import (
	"context"
	"fmt"

	"github.com/wehubfusion/modelchain/pkg/analysis"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
)

// Names of the units added by the Create* composites.
const (
	UnitParse              = "parse"
	UnitConvert            = "convert"
	UnitPetriNet           = "petri-net"
	UnitConnectedness      = "connectedness"
	UnitExtractLabels      = "extract-labels"
	UnitLabelFilter        = "label-filter"
	UnitExtractMetadata    = "extract-metadata"
	UnitMetadataFilter     = "metadata-filter"
	UnitScriptFilter       = "script-filter"
	UnitConformanceCheck   = "conformance-check"
	UnitClassify           = "classify"
	UnitElementClassFilter = "element-class-filter"
	UnitMetrics            = "metrics"
	UnitFeatures           = "features"
)

// CreateParseToDiagram appends the parse unit (raw → diagram).
func (b *Builder) CreateParseToDiagram() error {
	return b.AppendUnits(ParseUnit())
}

// CreateDiagramToProcessModel appends the convert unit (diagram → process model).
func (b *Builder) CreateDiagramToProcessModel() error {
	return b.AppendUnits(ConvertUnit())
}

// CreateParseAndConvert appends parse and convert as one step.
func (b *Builder) CreateParseAndConvert() error {
	return b.AppendUnits(ParseUnit(), ConvertUnit())
}

// CreateProcessModelToPetriNet appends the Petri net unit. Nets already in the
// data source's derived cache are reused.
func (b *Builder) CreateProcessModelToPetriNet() error {
	return b.AppendUnits(PetriNetUnit(b.petriNets))
}

// CreateConnectednessFilter appends a filter dropping process models that are
// not weakly connected.
func (b *Builder) CreateConnectednessFilter() error {
	return b.AppendUnits(ConnectednessFilter())
}

// CreateLabelFilter appends label extraction and a filter keeping models with
// at least one normalized label matching pattern.
func (b *Builder) CreateLabelFilter(pattern string) error {
	m, err := analysis.NewLabelMatcher(pattern)
	if err != nil {
		return mcerrors.Configuration("%s: %v", UnitLabelFilter, err)
	}
	return b.AppendUnits(ExtractLabelsUnit(), LabelFilter(m))
}

// CreateMetadataFilter appends metadata extraction and a filter evaluating the
// CEL expression expr against the metadata.
func (b *Builder) CreateMetadataFilter(expr string) error {
	e, err := analysis.CompileMetadataExpr(expr)
	if err != nil {
		return mcerrors.Configuration("%s: %v", UnitMetadataFilter, err)
	}
	return b.AppendUnits(ExtractMetadataUnit(), MetadataFilter(e))
}

// CreateScriptFilter appends metadata extraction and a filter running the
// JavaScript predicate src against the metadata.
func (b *Builder) CreateScriptFilter(src string) error {
	s, err := analysis.CompileScript(src, analysis.DefaultScriptTimeout)
	if err != nil {
		return mcerrors.Configuration("%s: %v", UnitScriptFilter, err)
	}
	return b.AppendUnits(ExtractMetadataUnit(), ScriptFilter(s))
}

// CreateConformanceCheck appends the conformance check, which is declared but
// not available: running it fails every non-empty payload.
func (b *Builder) CreateConformanceCheck() error {
	return b.AppendUnits(NewStub(UnitConformanceCheck, CategoryPetriNet, CategoryPetriNet))
}

// CreateElementClassFilter appends classification and a filter keeping models
// whose structural class, or one of whose element kinds, is in names.
func (b *Builder) CreateElementClassFilter(names ...string) error {
	m, err := analysis.NewClassMatcher(names...)
	if err != nil {
		return mcerrors.Configuration("%s: %v", UnitElementClassFilter, err)
	}
	return b.AppendUnits(ClassifyUnit(), ElementClassFilter(m))
}

// CreateMetrics appends the metrics unit (process model → metrics record).
func (b *Builder) CreateMetrics() error {
	return b.AppendUnits(MetricsUnit())
}

// CreateFeatureVector appends the feature unit (process model → feature vector).
func (b *Builder) CreateFeatureVector() error {
	return b.AppendUnits(FeaturesUnit())
}

// ParseUnit decodes the artifact's content into a diagram.
func ParseUnit() Unit {
	return NewUnit(UnitParse, CategoryRaw, CategoryDiagram, func(_ context.Context, p *Payload) error {
		a, err := valueAs[*model.Artifact](p, UnitParse)
		if err != nil {
			return err
		}
		d, err := analysis.ParseDiagram(a)
		if err != nil {
			return err
		}
		p.SetFacet(FacetDiagram, d)
		p.Set(d, CategoryDiagram)
		return nil
	})
}

// ConvertUnit builds the process model graph of a diagram.
func ConvertUnit() Unit {
	return NewUnit(UnitConvert, CategoryDiagram, CategoryProcessModel, func(_ context.Context, p *Payload) error {
		d, err := valueAs[*model.Diagram](p, UnitConvert)
		if err != nil {
			return err
		}
		pm, err := analysis.ToProcessModel(d)
		if err != nil {
			return err
		}
		p.SetFacet(FacetProcessModel, pm)
		p.Set(pm, CategoryProcessModel)
		return nil
	})
}

// PetriNetUnit derives the Petri net of a process model through nets.
func PetriNetUnit(nets *analysis.PetriNets) Unit {
	return NewUnit(UnitPetriNet, CategoryProcessModel, CategoryPetriNet, func(ctx context.Context, p *Payload) error {
		pm, err := processModelOf(p, UnitPetriNet)
		if err != nil {
			return err
		}
		net, _, err := nets.Derive(ctx, p.SourceID, pm)
		if err != nil {
			return err
		}
		p.SetFacet(FacetPetriNet, net)
		p.Set(net, CategoryPetriNet)
		return nil
	})
}

// ConnectednessFilter keeps weakly connected process models.
func ConnectednessFilter() Unit {
	return NewFilter(UnitConnectedness, CategoryProcessModel, func(_ context.Context, p *Payload) (bool, error) {
		pm, err := processModelOf(p, UnitConnectedness)
		if err != nil {
			return false, err
		}
		return pm.Connected(), nil
	})
}

// ExtractLabelsUnit maps normalized element labels to element IDs.
func ExtractLabelsUnit() Unit {
	return NewUnit(UnitExtractLabels, CategoryProcessModel, CategoryLabelMap, func(_ context.Context, p *Payload) error {
		pm, err := processModelOf(p, UnitExtractLabels)
		if err != nil {
			return err
		}
		labels := analysis.ExtractLabels(pm)
		p.SetFacet(FacetLabelMap, labels)
		p.Set(labels, CategoryLabelMap)
		return nil
	})
}

// LabelFilter keeps payloads whose label map satisfies m.
func LabelFilter(m *analysis.LabelMatcher) Unit {
	return NewFilter(UnitLabelFilter, CategoryLabelMap, func(_ context.Context, p *Payload) (bool, error) {
		labels, ok := FacetAs[model.LabelMap](p, FacetLabelMap)
		if !ok {
			return false, missingFacet(UnitLabelFilter, FacetLabelMap)
		}
		return m.Match(labels), nil
	})
}

// ExtractMetadataUnit exposes the artifact's metadata, plus the model size
// when a process model is available.
func ExtractMetadataUnit() Unit {
	return NewUnit(UnitExtractMetadata, CategoryAny, CategoryMetadataMap, func(_ context.Context, p *Payload) error {
		a, ok := p.Artifact()
		if !ok {
			return missingFacet(UnitExtractMetadata, FacetArtifact)
		}
		pm, _ := p.ProcessModel()
		md := analysis.ExtractMetadata(a, pm)
		p.SetFacet(FacetMetadata, md)
		p.Set(md, CategoryMetadataMap)
		return nil
	})
}

// MetadataFilter keeps payloads whose metadata satisfies the CEL expression e.
func MetadataFilter(e *analysis.MetadataExpr) Unit {
	return NewFilter(UnitMetadataFilter, CategoryMetadataMap, func(_ context.Context, p *Payload) (bool, error) {
		md, err := metadataOf(p, UnitMetadataFilter)
		if err != nil {
			return false, err
		}
		return e.Eval(md)
	})
}

// ScriptFilter keeps payloads whose metadata satisfies the script s.
func ScriptFilter(s *analysis.Script) Unit {
	return NewFilter(UnitScriptFilter, CategoryMetadataMap, func(ctx context.Context, p *Payload) (bool, error) {
		md, err := metadataOf(p, UnitScriptFilter)
		if err != nil {
			return false, err
		}
		return s.Eval(ctx, md)
	})
}

// ClassifyUnit assigns the structural subtype of a process model.
func ClassifyUnit() Unit {
	return NewUnit(UnitClassify, CategoryProcessModel, CategoryProcessModelSubtype, func(_ context.Context, p *Payload) error {
		pm, err := processModelOf(p, UnitClassify)
		if err != nil {
			return err
		}
		st := model.Classify(pm)
		p.SetFacet(FacetSubtype, st)
		p.Set(st, CategoryProcessModelSubtype)
		return nil
	})
}

// ElementClassFilter keeps payloads whose subtype satisfies m.
func ElementClassFilter(m *analysis.ClassMatcher) Unit {
	return NewFilter(UnitElementClassFilter, CategoryProcessModelSubtype, func(_ context.Context, p *Payload) (bool, error) {
		st, ok := FacetAs[model.Subtype](p, FacetSubtype)
		if !ok {
			return false, missingFacet(UnitElementClassFilter, FacetSubtype)
		}
		return m.Match(st), nil
	})
}

// MetricsUnit counts the elements of a process model.
func MetricsUnit() Unit {
	return NewUnit(UnitMetrics, CategoryProcessModel, CategoryMetricsRecord, func(_ context.Context, p *Payload) error {
		pm, err := processModelOf(p, UnitMetrics)
		if err != nil {
			return err
		}
		m := analysis.ComputeMetrics(pm)
		p.SetFacet(FacetMetrics, m)
		p.Set(m, CategoryMetricsRecord)
		return nil
	})
}

// FeaturesUnit builds the feature vector of a process model.
func FeaturesUnit() Unit {
	return NewUnit(UnitFeatures, CategoryProcessModel, CategoryFeatureVector, func(_ context.Context, p *Payload) error {
		pm, err := processModelOf(p, UnitFeatures)
		if err != nil {
			return err
		}
		fv := analysis.Features(pm)
		p.SetFacet(FacetFeatures, fv)
		p.Set(fv, CategoryFeatureVector)
		return nil
	})
}

func valueAs[T any](p *Payload, unit string) (T, error) {
	v, ok := p.Value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unit %q expects %T, got %T", unit, zero, p.Value)
	}
	return v, nil
}

func processModelOf(p *Payload, unit string) (*model.ProcessModel, error) {
	pm, ok := p.ProcessModel()
	if !ok {
		return nil, missingFacet(unit, FacetProcessModel)
	}
	return pm, nil
}

// metadataOf prefers a metadata value over the facet: a later extraction adds
// the model size, while the facet keeps the first view.
func metadataOf(p *Payload, unit string) (model.Metadata, error) {
	if md, ok := p.Value.(model.Metadata); ok {
		return md, nil
	}
	md, ok := p.Metadata()
	if !ok {
		return nil, missingFacet(unit, FacetMetadata)
	}
	return md, nil
}

func missingFacet(unit string, f Facet) error {
	return fmt.Errorf("unit %q needs the %s facet", unit, f)
}
