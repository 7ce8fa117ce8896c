package model

import (
	"fmt"
	"time"
)

// Artifact is one stored process-model representation.
// ModelID groups the revisions of the same model; ID is unique per revision.
type Artifact struct {
	ID         string         `json:"id"`
	ModelID    string         `json:"model_id"`
	Revision   int            `json:"revision"`
	Origin     Origin         `json:"origin"`
	Notation   Notation       `json:"notation"`
	Format     Format         `json:"format"`
	Name       string         `json:"name,omitempty"`
	Content    []byte         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ImportedAt time.Time      `json:"imported_at"`
}

// Validate checks the fields every store relies on.
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("artifact is nil")
	}
	if a.ID == "" {
		return fmt.Errorf("artifact id is required")
	}
	if a.ModelID == "" {
		return fmt.Errorf("artifact %s: model id is required", a.ID)
	}
	if a.Revision < 0 {
		return fmt.Errorf("artifact %s: revision must not be negative", a.ID)
	}
	return nil
}

// Describe returns the metadata map exposed to metadata filters: the artifact's own
// metadata plus its bookkeeping fields under reserved keys.
func (a *Artifact) Describe() map[string]any {
	out := make(map[string]any, len(a.Metadata)+6)
	for k, v := range a.Metadata {
		out[k] = v
	}
	out["id"] = a.ID
	out["model_id"] = a.ModelID
	out["revision"] = int64(a.Revision)
	out["origin"] = string(a.Origin)
	out["notation"] = string(a.Notation)
	out["format"] = string(a.Format)
	if a.Name != "" {
		out["name"] = a.Name
	}
	return out
}
