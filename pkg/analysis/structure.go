package analysis

import (
	"fmt"
	"slices"

	"github.com/wehubfusion/modelchain/pkg/model"
)

var structuralClasses = []string{
	model.ClassSequential,
	model.ClassParallel,
	model.ClassExclusive,
	model.ClassInclusive,
	model.ClassMixed,
}

// ClassMatcher keeps subtypes whose structural class is one of a set, or that
// contain one of a set of element kinds.
type ClassMatcher struct {
	classes []string
	kinds   []model.NodeKind
}

// NewClassMatcher accepts structural class names ("parallel") and node kinds ("xor").
func NewClassMatcher(names ...string) (*ClassMatcher, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("element class filter needs at least one class or kind")
	}
	m := &ClassMatcher{}
	for _, n := range names {
		if slices.Contains(structuralClasses, n) {
			m.classes = append(m.classes, n)
			continue
		}
		m.kinds = append(m.kinds, model.NodeKind(n))
	}
	return m, nil
}

// Match reports whether st satisfies the matcher.
func (m *ClassMatcher) Match(st model.Subtype) bool {
	if slices.Contains(m.classes, st.Class) {
		return true
	}
	for _, k := range m.kinds {
		if st.Has(k) {
			return true
		}
	}
	return false
}

// ComputeMetrics counts the elements of pm.
func ComputeMetrics(pm *model.ProcessModel) model.MetricsRecord {
	rec := model.MetricsRecord{
		Nodes:     pm.NodeCount(),
		Edges:     pm.EdgeCount(),
		Connected: pm.Connected(),
	}
	for _, n := range pm.Nodes() {
		switch {
		case n.Kind.IsActivity():
			rec.Activities++
		case n.Kind.IsConnector():
			rec.Connectors++
		case n.Kind == model.KindEvent || n.Kind == model.KindStartEvent || n.Kind == model.KindEndEvent:
			rec.Events++
		}
	}
	if rec.Nodes > 1 {
		rec.Density = float64(rec.Edges) / float64(rec.Nodes*(rec.Nodes-1))
	}
	return rec
}

// featureKinds fixes the order of the per-kind features.
var featureKinds = []model.NodeKind{
	model.KindEvent,
	model.KindFunction,
	model.KindAndConnector,
	model.KindOrConnector,
	model.KindXorConnector,
	model.KindProcessInterface,
	model.KindStartEvent,
	model.KindEndEvent,
	model.KindTask,
	model.KindGateway,
}

// FeatureNames lists the features produced by Features, in order.
func FeatureNames() []string {
	names := []string{"nodes", "edges", "density", "connected"}
	for _, k := range featureKinds {
		names = append(names, "kind."+string(k))
	}
	return names
}

// Features builds a fixed-length numeric vector from pm, suitable for clustering.
func Features(pm *model.ProcessModel) model.FeatureVector {
	m := ComputeMetrics(pm)
	counts := pm.KindCounts()
	values := []float64{float64(m.Nodes), float64(m.Edges), m.Density, 0}
	if m.Connected {
		values[3] = 1
	}
	for _, k := range featureKinds {
		values = append(values, float64(counts[k]))
	}
	return model.FeatureVector{Names: FeatureNames(), Values: values}
}
