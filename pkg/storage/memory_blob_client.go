package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

// MemoryBlobClient is an in-process BlobClient for local runs and tests.
type MemoryBlobClient struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	metadata map[string]map[string]string
}

// NewMemoryBlobClient creates an empty in-memory container.
func NewMemoryBlobClient() *MemoryBlobClient {
	return &MemoryBlobClient{
		blobs:    make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}
}

func (m *MemoryBlobClient) Upload(_ context.Context, blobPath string, data []byte, metadata map[string]string) (string, error) {
	if blobPath == "" {
		return "", fmt.Errorf("blob path is empty")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	m.mu.Lock()
	m.blobs[blobPath] = buf
	m.metadata[blobPath] = md
	m.mu.Unlock()
	return "memory://" + blobPath, nil
}

func (m *MemoryBlobClient) Download(_ context.Context, reference string) ([]byte, error) {
	blobPath := strings.TrimPrefix(reference, "memory://")
	m.mu.RLock()
	data, ok := m.blobs[blobPath]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", blobPath, mcerrors.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// List returns blob names under prefix in lexical order.
func (m *MemoryBlobClient) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryBlobClient) Delete(_ context.Context, blobPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[blobPath]; !ok {
		return fmt.Errorf("blob %s: %w", blobPath, mcerrors.ErrNotFound)
	}
	delete(m.blobs, blobPath)
	delete(m.metadata, blobPath)
	return nil
}

// Metadata returns the metadata stored with a blob.
func (m *MemoryBlobClient) Metadata(blobPath string) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.metadata[blobPath]
	return md, ok
}
