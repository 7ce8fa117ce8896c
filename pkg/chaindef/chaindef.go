// Package chaindef reads chain definitions from YAML and applies them to a
// chain builder.
//
// A definition names the chain, its worker count, the source filter and the
// steps to append. A step is either a plain name or a name with arguments:
//
//	name: invoice-models
//	workers: 4
//	filter:
//	  origin: sap
//	  notations: [epc]
//	  formats: [json]
//	  latest_only: true
//	steps:
//	  - parse-and-convert
//	  - connectedness
//	  - name: label-filter
//	    pattern: invoice
//	  - metrics
package chaindef

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wehubfusion/modelchain/pkg/chain"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
	"github.com/wehubfusion/modelchain/pkg/store"
)

// Step names.
const (
	StepParse              = "parse"
	StepConvert            = "convert"
	StepParseAndConvert    = "parse-and-convert"
	StepPetriNet           = "petri-net"
	StepConnectedness      = "connectedness"
	StepLabelFilter        = "label-filter"
	StepMetadataFilter     = "metadata-filter"
	StepScriptFilter       = "script-filter"
	StepConformanceCheck   = "conformance-check"
	StepElementClassFilter = "element-class-filter"
	StepMetrics            = "metrics"
	StepFeatures           = "features"
)

// Payload kinds accepted in the kind field.
const (
	KindRaw      = "raw"
	KindMetadata = "metadata"
)

// Definition is a chain described in YAML.
type Definition struct {
	Name    string    `yaml:"name"`
	Workers int       `yaml:"workers"`
	Kind    string    `yaml:"kind"`
	Filter  FilterDef `yaml:"filter"`
	Steps   []StepRef `yaml:"steps"`
}

// FilterDef is the source filter of a definition. Empty fields match everything.
type FilterDef struct {
	Origin     string   `yaml:"origin"`
	Notations  []string `yaml:"notations"`
	Formats    []string `yaml:"formats"`
	LatestOnly bool     `yaml:"latest_only"`
}

// StepRef is one step: a name plus the argument its step needs.
type StepRef struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"` // label-filter
	Expr    string   `yaml:"expr"`    // metadata-filter
	Script  string   `yaml:"script"`  // script-filter
	Classes []string `yaml:"classes"` // element-class-filter
}

// UnmarshalYAML allows a step to be a string (step name only) or a struct.
func (s *StepRef) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Name = nameOnly
		return nil
	}
	type raw StepRef
	return value.Decode((*raw)(s))
}

// Parse decodes and validates a definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, mcerrors.Configuration("chain definition: %v", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks names, arguments and the filter without touching a builder.
// Category compatibility between steps is checked when the steps are applied.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return mcerrors.Configuration("chain definition needs a name")
	}
	if d.Workers < 0 {
		return mcerrors.Configuration("chain %s: workers must not be negative", d.Name)
	}
	if _, err := d.PayloadKind(); err != nil {
		return err
	}
	if _, err := d.FilterConfig(); err != nil {
		return err
	}
	for i, step := range d.Steps {
		if err := step.validate(); err != nil {
			return mcerrors.Configuration("chain %s: step %d: %v", d.Name, i, err)
		}
	}
	return nil
}

func (s StepRef) validate() error {
	switch s.Name {
	case "":
		return fmt.Errorf("name required")
	case StepLabelFilter:
		if s.Pattern == "" {
			return fmt.Errorf("%s needs a pattern", s.Name)
		}
	case StepMetadataFilter:
		if s.Expr == "" {
			return fmt.Errorf("%s needs an expr", s.Name)
		}
	case StepScriptFilter:
		if s.Script == "" {
			return fmt.Errorf("%s needs a script", s.Name)
		}
	case StepElementClassFilter:
		if len(s.Classes) == 0 {
			return fmt.Errorf("%s needs classes", s.Name)
		}
	case StepParse, StepConvert, StepParseAndConvert, StepPetriNet, StepConnectedness,
		StepConformanceCheck, StepMetrics, StepFeatures:
	default:
		return fmt.Errorf("unknown step %q", s.Name)
	}
	return nil
}

// PayloadKind returns the payload kind the source should produce. The default is raw.
func (d *Definition) PayloadKind() (chain.PayloadKind, error) {
	switch d.Kind {
	case "", KindRaw:
		return chain.KindRaw, nil
	case KindMetadata:
		return chain.KindMetadata, nil
	}
	return chain.KindRaw, mcerrors.Configuration("chain %s: unknown payload kind %q", d.Name, d.Kind)
}

// FilterConfig converts the filter section.
func (d *Definition) FilterConfig() (model.FilterConfig, error) {
	origin, err := model.ParseOrigin(d.Filter.Origin)
	if err != nil {
		return model.FilterConfig{}, mcerrors.Configuration("chain %s: %v", d.Name, err)
	}
	notations := make([]model.Notation, 0, len(d.Filter.Notations))
	for _, s := range d.Filter.Notations {
		n, err := model.ParseNotation(s)
		if err != nil {
			return model.FilterConfig{}, mcerrors.Configuration("chain %s: %v", d.Name, err)
		}
		notations = append(notations, n)
	}
	formats := make([]model.Format, 0, len(d.Filter.Formats))
	for _, s := range d.Filter.Formats {
		f, err := model.ParseFormat(s)
		if err != nil {
			return model.FilterConfig{}, mcerrors.Configuration("chain %s: %v", d.Name, err)
		}
		formats = append(formats, f)
	}
	return model.NewFilter(origin).
		WithNotations(notations...).
		WithFormats(formats...).
		WithLatestOnly(d.Filter.LatestOnly), nil
}

// Options returns the chain options the definition sets.
func (d *Definition) Options() []chain.Option {
	opts := []chain.Option{chain.WithName(d.Name)}
	if d.Workers > 0 {
		opts = append(opts, chain.WithWorkers(d.Workers))
	}
	return opts
}

// Apply appends every step to b as one step and sets the source filter. If
// any step fails the chain is left exactly as it was and the filter is not set.
func (d *Definition) Apply(b *chain.Builder) error {
	if err := d.Validate(); err != nil {
		return err
	}
	filter, err := d.FilterConfig()
	if err != nil {
		return err
	}
	err = b.Atomically(func(b *chain.Builder) error {
		for i, step := range d.Steps {
			if err := step.apply(b); err != nil {
				return fmt.Errorf("chain %s: step %d (%s): %w", d.Name, i, step.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.SetSourceFilter(filter)
	return nil
}

func (s StepRef) apply(b *chain.Builder) error {
	switch s.Name {
	case StepParse:
		return b.CreateParseToDiagram()
	case StepConvert:
		return b.CreateDiagramToProcessModel()
	case StepParseAndConvert:
		return b.CreateParseAndConvert()
	case StepPetriNet:
		return b.CreateProcessModelToPetriNet()
	case StepConnectedness:
		return b.CreateConnectednessFilter()
	case StepLabelFilter:
		return b.CreateLabelFilter(s.Pattern)
	case StepMetadataFilter:
		return b.CreateMetadataFilter(s.Expr)
	case StepScriptFilter:
		return b.CreateScriptFilter(s.Script)
	case StepConformanceCheck:
		return b.CreateConformanceCheck()
	case StepElementClassFilter:
		return b.CreateElementClassFilter(s.Classes...)
	case StepMetrics:
		return b.CreateMetrics()
	case StepFeatures:
		return b.CreateFeatureVector()
	}
	return fmt.Errorf("unknown step %q", s.Name)
}

// Build creates a builder over src configured by d. opts are applied after
// the definition's own options.
func Build(src store.DataSource, d *Definition, opts ...chain.Option) (*chain.Builder, error) {
	kind, err := d.PayloadKind()
	if err != nil {
		return nil, err
	}
	b := chain.NewBuilderWithSource(src, 1, kind, append(d.Options(), opts...)...)
	if err := d.Apply(b); err != nil {
		return nil, err
	}
	return b, nil
}
