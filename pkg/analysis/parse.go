// Package analysis holds the process-model operations that chain units wrap:
// parsing, conversion, Petri-net derivation, label and metadata extraction,
// classification, metrics and feature vectors, plus the compiled predicates
// used by the filter units.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
)

// ParseDiagram decodes an artifact's content into a diagram. Only the JSON
// diagram format is supported; XML and PNML are declared but unavailable.
func ParseDiagram(a *model.Artifact) (*model.Diagram, error) {
	if a == nil {
		return nil, fmt.Errorf("artifact is nil")
	}
	switch a.Format {
	case model.FormatJSON:
	case model.FormatXML, model.FormatPNML:
		return nil, mcerrors.Unsupported(string(a.Format) + " parsing")
	default:
		return nil, mcerrors.Unsupported(fmt.Sprintf("format %q", a.Format))
	}
	if len(bytes.TrimSpace(a.Content)) == 0 {
		return nil, fmt.Errorf("artifact %s has no content", a.ID)
	}

	var d model.Diagram
	dec := json.NewDecoder(bytes.NewReader(a.Content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", a.ID, err)
	}
	if d.ID == "" {
		d.ID = a.ID
	}
	if d.Name == "" {
		d.Name = a.Name
	}
	if d.Notation == "" {
		d.Notation = a.Notation
	}
	return &d, nil
}

// ToProcessModel converts a parsed diagram into its graph view.
func ToProcessModel(d *model.Diagram) (*model.ProcessModel, error) {
	return model.NewProcessModel(d)
}
