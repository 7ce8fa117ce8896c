package chain

import (
	"context"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

// Unit is one stage of a chain.
//
// Execute must fail with an invalid-input error for a nil payload. A unit that
// is not a filter returns an empty payload unchanged. Units only set the value
// and attach facets on the payload they receive; they never clear facets.
type Unit interface {
	Name() string
	InputCategory() Category
	OutputCategory() Category
	Execute(ctx context.Context, p *Payload) (*Payload, error)
}

// Filter is implemented by units that may move a payload into the empty state.
type Filter interface {
	Unit
	IsFilter() bool
}

// IsFilter reports whether u is a filter unit.
func IsFilter(u Unit) bool {
	f, ok := u.(Filter)
	return ok && f.IsFilter()
}

// TransformFunc updates p in place: it sets the new value and any facets.
type TransformFunc func(ctx context.Context, p *Payload) error

// PredicateFunc decides whether p survives a filter.
type PredicateFunc func(ctx context.Context, p *Payload) (bool, error)

type funcUnit struct {
	name    string
	in, out Category
	fn      TransformFunc
}

// NewUnit builds a unit from a transform function. The returned unit enforces
// the nil and empty payload rules, so fn only sees non-empty payloads.
func NewUnit(name string, in, out Category, fn TransformFunc) Unit {
	return &funcUnit{name: name, in: in, out: out, fn: fn}
}

func (u *funcUnit) Name() string             { return u.name }
func (u *funcUnit) InputCategory() Category  { return u.in }
func (u *funcUnit) OutputCategory() Category { return u.out }

func (u *funcUnit) Execute(ctx context.Context, p *Payload) (*Payload, error) {
	if p == nil {
		return nil, mcerrors.InvalidInput(u.name)
	}
	if p.Empty() {
		return p, nil
	}
	if err := u.fn(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

type filterUnit struct {
	name string
	cat  Category
	pred PredicateFunc
}

// NewFilter builds a filter unit whose input and output category is c.
// Payloads failing pred are cleared. An empty payload stays empty: a filter
// can never restore a value, so pred is not consulted for it. The outcome is
// the same as evaluating pred and ignoring the result; a predicate with side
// effects only sees non-empty payloads.
func NewFilter(name string, c Category, pred PredicateFunc) Unit {
	return &filterUnit{name: name, cat: c, pred: pred}
}

func (f *filterUnit) Name() string             { return f.name }
func (f *filterUnit) InputCategory() Category  { return f.cat }
func (f *filterUnit) OutputCategory() Category { return f.cat }
func (f *filterUnit) IsFilter() bool           { return true }

func (f *filterUnit) Execute(ctx context.Context, p *Payload) (*Payload, error) {
	if p == nil {
		return nil, mcerrors.InvalidInput(f.name)
	}
	if p.Empty() {
		return p, nil
	}
	keep, err := f.pred(ctx, p)
	if err != nil {
		return p, err
	}
	if !keep {
		p.Clear()
	}
	return p, nil
}

type stubUnit struct {
	name    string
	in, out Category
}

// NewStub declares a unit that is not available yet. Executing it on a
// non-empty payload fails with an unsupported-operation error.
func NewStub(name string, in, out Category) Unit {
	return &stubUnit{name: name, in: in, out: out}
}

func (s *stubUnit) Name() string             { return s.name }
func (s *stubUnit) InputCategory() Category  { return s.in }
func (s *stubUnit) OutputCategory() Category { return s.out }

func (s *stubUnit) Execute(_ context.Context, p *Payload) (*Payload, error) {
	if p == nil {
		return nil, mcerrors.InvalidInput(s.name)
	}
	if p.Empty() {
		return p, nil
	}
	return p, mcerrors.Unsupported(s.name)
}
