package model

import (
	"fmt"
	"slices"
	"strings"
)

// FilterConfig selects the artifacts a data source yields. It is a value type:
// the With* methods return modified copies and never touch the receiver.
//
// An empty Origin, Notations or Formats matches everything for that field.
// LatestOnly keeps only the highest revision of each model; stores apply it
// because it depends on the other revisions, so Matches ignores it.
type FilterConfig struct {
	Origin     Origin
	Notations  []Notation
	Formats    []Format
	LatestOnly bool
}

// NewFilter returns a filter for one origin.
func NewFilter(origin Origin) FilterConfig {
	return FilterConfig{Origin: origin}
}

// WithNotations returns a copy of f restricted to the given notations.
func (f FilterConfig) WithNotations(n ...Notation) FilterConfig {
	f.Notations = slices.Clone(n)
	f.Formats = slices.Clone(f.Formats)
	return f
}

// WithFormats returns a copy of f restricted to the given formats.
func (f FilterConfig) WithFormats(formats ...Format) FilterConfig {
	f.Formats = slices.Clone(formats)
	f.Notations = slices.Clone(f.Notations)
	return f
}

// WithLatestOnly returns a copy of f with the latest-revision flag set.
func (f FilterConfig) WithLatestOnly(latest bool) FilterConfig {
	f.Notations = slices.Clone(f.Notations)
	f.Formats = slices.Clone(f.Formats)
	f.LatestOnly = latest
	return f
}

// Matches reports whether a satisfies the origin, notation and format predicates.
func (f FilterConfig) Matches(a *Artifact) bool {
	if a == nil {
		return false
	}
	if f.Origin != OriginUnknown && a.Origin != f.Origin {
		return false
	}
	if len(f.Notations) > 0 && !slices.Contains(f.Notations, a.Notation) {
		return false
	}
	if len(f.Formats) > 0 && !slices.Contains(f.Formats, a.Format) {
		return false
	}
	return true
}

func (f FilterConfig) String() string {
	origin := string(f.Origin)
	if origin == "" {
		origin = "*"
	}
	join := func(vals []string) string {
		if len(vals) == 0 {
			return "*"
		}
		return strings.Join(vals, "|")
	}
	notations := make([]string, len(f.Notations))
	for i, n := range f.Notations {
		notations[i] = string(n)
	}
	formats := make([]string, len(f.Formats))
	for i, ft := range f.Formats {
		formats[i] = string(ft)
	}
	return fmt.Sprintf("Filter{origin=%s notation=%s format=%s latest=%t}", origin, join(notations), join(formats), f.LatestOnly)
}

// LatestRevisions reduces artifacts to the highest revision per model, keeping input order
// of the surviving entries.
func LatestRevisions(artifacts []*Artifact) []*Artifact {
	best := make(map[string]int, len(artifacts))
	for _, a := range artifacts {
		if cur, ok := best[a.ModelID]; !ok || a.Revision > cur {
			best[a.ModelID] = a.Revision
		}
	}
	out := make([]*Artifact, 0, len(best))
	seen := make(map[string]bool, len(best))
	for _, a := range artifacts {
		if a.Revision == best[a.ModelID] && !seen[a.ModelID] {
			seen[a.ModelID] = true
			out = append(out, a)
		}
	}
	return out
}
