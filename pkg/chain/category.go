package chain

// Category tags the shape of a payload value. Units declare the category they
// accept and the one they produce; the builder checks adjacent pairs with Accepts.
type Category int

const (
	CategoryAny Category = iota
	CategoryRaw
	CategoryDiagram
	CategoryProcessModel
	CategoryProcessModelSubtype
	CategoryPetriNet
	CategoryLabelMap
	CategoryMetadataMap
	CategoryMetricsRecord
	CategoryFeatureVector

	numCategories
)

var categoryNames = [numCategories]string{
	CategoryAny:                 "any",
	CategoryRaw:                 "raw-representation",
	CategoryDiagram:             "parsed-diagram",
	CategoryProcessModel:        "process-model",
	CategoryProcessModelSubtype: "process-model-subtype",
	CategoryPetriNet:            "petri-net",
	CategoryLabelMap:            "label-map",
	CategoryMetadataMap:         "metadata-map",
	CategoryMetricsRecord:       "metrics-record",
	CategoryFeatureVector:       "feature-vector",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// parent is the declared supertype of each category. The refined categories
// below process-model all carry a process model plus one facet, so a unit
// asking for a process model accepts any of them. Raw and diagram are
// separate representations with no supertype.
var parent = [numCategories]Category{
	CategoryProcessModelSubtype: CategoryProcessModel,
	CategoryPetriNet:            CategoryProcessModel,
	CategoryLabelMap:            CategoryProcessModel,
	CategoryMetadataMap:         CategoryProcessModel,
	CategoryMetricsRecord:       CategoryProcessModel,
	CategoryFeatureVector:       CategoryProcessModel,
}

// accepts[in][out] is precomputed from parent at init.
var accepts [numCategories][numCategories]bool

func init() {
	for in := Category(0); in < numCategories; in++ {
		for out := Category(0); out < numCategories; out++ {
			accepts[in][out] = in == CategoryAny || in == out || isAncestor(in, out)
		}
	}
}

func isAncestor(ancestor, c Category) bool {
	for p := parent[c]; p != CategoryAny; p = parent[p] {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Accepts reports whether a unit with input category in may follow a unit
// whose output category is out.
func Accepts(in, out Category) bool {
	if in < 0 || in >= numCategories || out < 0 || out >= numCategories {
		return false
	}
	return accepts[in][out]
}
