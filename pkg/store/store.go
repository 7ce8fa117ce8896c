// Package store provides the data sources chains scan for artifacts.
package store

import (
	"context"
	"sort"

	"github.com/wehubfusion/modelchain/pkg/model"
)

// DataSource is a store of artifacts.
//
// LoadMatching pushes every artifact matching filter into sink, in ID order,
// and returns once the last one has been accepted. It never closes sink; the
// caller owns the channel. It stops early with ctx.Err() when ctx is done.
type DataSource interface {
	Open(ctx context.Context) error
	Close() error
	LoadMatching(ctx context.Context, filter model.FilterConfig, sink chan<- *model.Artifact) error
	LoadOne(ctx context.Context, id string) (*model.Artifact, error)
	Save(ctx context.Context, a *model.Artifact) error
	DropAll(ctx context.Context) error
	// ClearCache drops derived artifacts cached for this store.
	ClearCache(ctx context.Context) error
}

// send delivers a to sink unless ctx ends first.
func send(ctx context.Context, sink chan<- *model.Artifact, a *model.Artifact) error {
	select {
	case sink <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// selectMatching applies filter to artifacts and orders the result by ID.
func selectMatching(artifacts []*model.Artifact, filter model.FilterConfig) []*model.Artifact {
	out := make([]*model.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.LatestOnly {
		out = model.LatestRevisions(out)
	}
	return out
}

// cloneArtifact copies the mutable parts so callers never share store state.
func cloneArtifact(a *model.Artifact) *model.Artifact {
	c := *a
	c.Content = append([]byte(nil), a.Content...)
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
