package model

import "sort"

// LabelMap maps a normalized element label to the IDs of the elements carrying it.
type LabelMap map[string][]string

// Labels returns the labels in sorted order.
func (m LabelMap) Labels() []string {
	out := make([]string, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Metadata is the flat key/value view of an artifact used by metadata filters.
type Metadata map[string]any

// MetricsRecord holds size counts of a process model.
type MetricsRecord struct {
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Activities int     `json:"activities"`
	Connectors int     `json:"connectors"`
	Events     int     `json:"events"`
	Density    float64 `json:"density"`
	Connected  bool    `json:"connected"`
}

// FeatureVector is a named numeric vector. Names and Values have equal length.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Get returns the value of a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Subtype is the structural class assigned to a process model.
type Subtype struct {
	// Class is one of the Class* constants.
	Class string `json:"class"`
	// Kinds lists the distinct node kinds present in the model.
	Kinds []NodeKind `json:"kinds"`
}

// Structural classes assigned by classification.
const (
	ClassSequential = "sequential" // no connectors
	ClassParallel   = "parallel"   // AND connectors only
	ClassExclusive  = "exclusive"  // XOR connectors or gateways only
	ClassInclusive  = "inclusive"  // contains OR connectors
	ClassMixed      = "mixed"      // AND together with XOR/gateways
)

// Has reports whether the subtype contains kind k.
func (s Subtype) Has(k NodeKind) bool {
	for _, have := range s.Kinds {
		if have == k {
			return true
		}
	}
	return false
}

// Classify assigns a structural class to pm.
func Classify(pm *ProcessModel) Subtype {
	counts := pm.KindCounts()
	st := Subtype{Kinds: pm.Kinds()}
	and := counts[KindAndConnector]
	exclusive := counts[KindXorConnector] + counts[KindGateway]
	switch {
	case counts[KindOrConnector] > 0:
		st.Class = ClassInclusive
	case and > 0 && exclusive > 0:
		st.Class = ClassMixed
	case and > 0:
		st.Class = ClassParallel
	case exclusive > 0:
		st.Class = ClassExclusive
	default:
		st.Class = ClassSequential
	}
	return st
}
