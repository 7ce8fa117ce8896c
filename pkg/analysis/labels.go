package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/wehubfusion/modelchain/pkg/model"
)

// NormalizeLabel case-folds a label and collapses runs of whitespace.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(cases.Fold().String(label)), " ")
}

// ExtractLabels maps every normalized, non-empty element label of pm to the IDs
// of the elements carrying it, in model order.
func ExtractLabels(pm *model.ProcessModel) model.LabelMap {
	out := make(model.LabelMap)
	for _, n := range pm.Nodes() {
		l := NormalizeLabel(n.Label)
		if l == "" {
			continue
		}
		out[l] = append(out[l], n.ID)
	}
	return out
}

// LabelMatcher keeps label maps containing at least one label that matches a pattern.
type LabelMatcher struct {
	re *regexp.Regexp
}

// NewLabelMatcher compiles pattern. Matching runs against normalized labels.
func NewLabelMatcher(pattern string) (*LabelMatcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("label pattern is empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid label pattern: %w", err)
	}
	return &LabelMatcher{re: re}, nil
}

// Match reports whether any label of m matches.
func (lm *LabelMatcher) Match(m model.LabelMap) bool {
	for l := range m {
		if lm.re.MatchString(l) {
			return true
		}
	}
	return false
}

func (lm *LabelMatcher) String() string { return lm.re.String() }
