package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/wehubfusion/modelchain/pkg/cache"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
)

// MemoryStore keeps artifacts in process memory. It backs local runs and test
// fixtures. Open must be called before use.
type MemoryStore struct {
	mu        sync.RWMutex
	open      bool
	artifacts map[string]*model.Artifact
	cache     cache.Cache
}

// NewMemoryStore creates a store seeded with artifacts. A nil derived cache disables caching.
func NewMemoryStore(derived cache.Cache, artifacts ...*model.Artifact) *MemoryStore {
	if derived == nil {
		derived = cache.Nop{}
	}
	m := &MemoryStore{
		artifacts: make(map[string]*model.Artifact, len(artifacts)),
		cache:     derived,
	}
	for _, a := range artifacts {
		m.artifacts[a.ID] = cloneArtifact(a)
	}
	return m
}

func (m *MemoryStore) Open(context.Context) error {
	m.mu.Lock()
	m.open = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	return nil
}

// Cache returns the derived-artifact cache.
func (m *MemoryStore) Cache() cache.Cache { return m.cache }

func (m *MemoryStore) LoadMatching(ctx context.Context, filter model.FilterConfig, sink chan<- *model.Artifact) error {
	m.mu.RLock()
	if !m.open {
		m.mu.RUnlock()
		return mcerrors.ErrNotConnected
	}
	all := make([]*model.Artifact, 0, len(m.artifacts))
	for _, a := range m.artifacts {
		all = append(all, a)
	}
	m.mu.RUnlock()

	for _, a := range selectMatching(all, filter) {
		if err := send(ctx, sink, cloneArtifact(a)); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) LoadOne(_ context.Context, id string) (*model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return nil, mcerrors.ErrNotConnected
	}
	a, ok := m.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", id, mcerrors.ErrNotFound)
	}
	return cloneArtifact(a), nil
}

func (m *MemoryStore) Save(_ context.Context, a *model.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return mcerrors.ErrNotConnected
	}
	m.artifacts[a.ID] = cloneArtifact(a)
	return nil
}

func (m *MemoryStore) DropAll(ctx context.Context) error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return mcerrors.ErrNotConnected
	}
	m.artifacts = make(map[string]*model.Artifact)
	m.mu.Unlock()
	return m.cache.Clear(ctx)
}

func (m *MemoryStore) ClearCache(ctx context.Context) error {
	return m.cache.Clear(ctx)
}

// Len returns the number of stored artifacts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}
