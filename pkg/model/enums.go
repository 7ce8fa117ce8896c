// Package model holds the process-model artifact types shared by the store,
// the domain units and the chain engine.
package model

import (
	"fmt"
	"strings"
)

// Origin identifies the collection an artifact was imported from.
type Origin string

const (
	OriginUnknown    Origin = ""
	OriginBPMAI      Origin = "bpmai"
	OriginGenMyModel Origin = "genmymodel"
	OriginIBM        Origin = "ibm"
	OriginSAP        Origin = "sap"
	OriginCustom     Origin = "custom"
)

// Notation is the modelling language of an artifact.
type Notation string

const (
	NotationEPC      Notation = "epc"
	NotationBPMN     Notation = "bpmn"
	NotationPetriNet Notation = "petrinet"
	NotationOther    Notation = "other"
)

// Format is the serialization of an artifact's content.
type Format string

const (
	FormatJSON  Format = "json"
	FormatXML   Format = "xml"
	FormatPNML  Format = "pnml"
	FormatOther Format = "other"
)

func (o Origin) String() string   { return string(o) }
func (n Notation) String() string { return string(n) }
func (f Format) String() string   { return string(f) }

var (
	origins   = []Origin{OriginBPMAI, OriginGenMyModel, OriginIBM, OriginSAP, OriginCustom}
	notations = []Notation{NotationEPC, NotationBPMN, NotationPetriNet, NotationOther}
	formats   = []Format{FormatJSON, FormatXML, FormatPNML, FormatOther}
)

// ParseOrigin parses an origin name case-insensitively. The empty string is OriginUnknown.
func ParseOrigin(s string) (Origin, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OriginUnknown, nil
	}
	for _, o := range origins {
		if string(o) == s {
			return o, nil
		}
	}
	return OriginUnknown, fmt.Errorf("unknown origin %q", s)
}

// ParseNotation parses a notation name case-insensitively.
func ParseNotation(s string) (Notation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, n := range notations {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown notation %q", s)
}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}
