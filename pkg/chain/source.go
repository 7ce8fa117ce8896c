package chain

import (
	"context"
	"fmt"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
	"github.com/wehubfusion/modelchain/pkg/store"
)

const sourceUnitName = "source"

// SourceUnit is the first unit of a built chain. It holds the data source and
// the filter used to scan it; per artifact it only passes the payload on.
type SourceUnit struct {
	source    store.DataSource
	kind      PayloadKind
	filter    model.FilterConfig
	filterSet bool
}

// NewSourceUnit wraps a data source. The filter must be set before the chain runs.
func NewSourceUnit(src store.DataSource, kind PayloadKind) *SourceUnit {
	return &SourceUnit{source: src, kind: kind}
}

func (s *SourceUnit) Name() string            { return sourceUnitName }
func (s *SourceUnit) InputCategory() Category { return CategoryAny }

func (s *SourceUnit) OutputCategory() Category {
	c, _ := s.kind.category()
	return c
}

// Execute passes p through.
func (s *SourceUnit) Execute(_ context.Context, p *Payload) (*Payload, error) {
	if p == nil {
		return nil, mcerrors.InvalidInput(s.Name())
	}
	return p, nil
}

// Kind returns the payload kind the source produces.
func (s *SourceUnit) Kind() PayloadKind { return s.kind }

// DataSource returns the wrapped data source.
func (s *SourceUnit) DataSource() store.DataSource { return s.source }

// SetFilter replaces the scan filter.
func (s *SourceUnit) SetFilter(f model.FilterConfig) {
	s.filter = f
	s.filterSet = true
}

// Filter returns the scan filter and whether one was set.
func (s *SourceUnit) Filter() (model.FilterConfig, bool) {
	return s.filter, s.filterSet
}

// validate reports a configuration error when the source cannot be scanned.
func (s *SourceUnit) validate() error {
	if s.source == nil {
		return mcerrors.Configuration("source unit has no data source")
	}
	if !s.filterSet {
		return mcerrors.Configuration("source filter not set")
	}
	if _, ok := s.kind.category(); !ok {
		return mcerrors.Configuration("unsupported payload kind %d", s.kind)
	}
	return nil
}

// scan pushes every matching artifact into sink. It does not close sink.
func (s *SourceUnit) scan(ctx context.Context, sink chan<- *model.Artifact) error {
	if err := s.source.LoadMatching(ctx, s.filter, sink); err != nil {
		return fmt.Errorf("source scan: %w", err)
	}
	return nil
}
