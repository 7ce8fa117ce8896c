package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wehubfusion/modelchain/pkg/cache"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
	"github.com/wehubfusion/modelchain/pkg/model"
	"github.com/wehubfusion/modelchain/pkg/storage"
)

// BlobStore keeps each artifact as a JSON blob under a prefix
// ("artifacts/<id>.json"). Scans list the prefix and download in parallel.
type BlobStore struct {
	client   storage.BlobClient
	prefix   string
	fetchers int
	cache    cache.Cache
	logger   *zap.Logger

	mu   sync.RWMutex
	open bool
}

// BlobStoreOption configures a BlobStore.
type BlobStoreOption func(*BlobStore)

// WithPrefix sets the blob prefix artifacts live under.
func WithPrefix(prefix string) BlobStoreOption {
	return func(s *BlobStore) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		s.prefix = prefix
	}
}

// WithFetchers sets how many blobs a scan downloads at once.
func WithFetchers(n int) BlobStoreOption {
	return func(s *BlobStore) {
		if n > 0 {
			s.fetchers = n
		}
	}
}

// WithDerivedCache sets the cache cleared by ClearCache and DropAll.
func WithDerivedCache(c cache.Cache) BlobStoreOption {
	return func(s *BlobStore) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) BlobStoreOption {
	return func(s *BlobStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewBlobStore creates a store over client.
func NewBlobStore(client storage.BlobClient, opts ...BlobStoreOption) *BlobStore {
	s := &BlobStore{
		client:   client,
		prefix:   "artifacts/",
		fetchers: 8,
		cache:    cache.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BlobStore) Open(context.Context) error {
	if s.client == nil {
		return mcerrors.Configuration("blob store has no client")
	}
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return nil
}

func (s *BlobStore) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}

func (s *BlobStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return mcerrors.ErrNotConnected
	}
	return nil
}

// Cache returns the derived-artifact cache.
func (s *BlobStore) Cache() cache.Cache { return s.cache }

func (s *BlobStore) blobPath(id string) string {
	return s.prefix + id + ".json"
}

func (s *BlobStore) LoadMatching(ctx context.Context, filter model.FilterConfig, sink chan<- *model.Artifact) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	names, err := s.client.List(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}

	artifacts := make([]*model.Artifact, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchers)
	for i, name := range names {
		g.Go(func() error {
			a, err := s.fetch(gctx, name)
			if err != nil {
				return err
			}
			artifacts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	matching := selectMatching(artifacts, filter)
	s.logger.Debug("Blob store scan",
		zap.String("prefix", s.prefix),
		zap.Int("listed", len(names)),
		zap.Int("matching", len(matching)),
		zap.Stringer("filter", filter))
	for _, a := range matching {
		if err := send(ctx, sink, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *BlobStore) fetch(ctx context.Context, name string) (*model.Artifact, error) {
	data, err := s.client.Download(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	var a model.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path.Base(name), err)
	}
	return &a, nil
}

func (s *BlobStore) LoadOne(ctx context.Context, id string) (*model.Artifact, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.fetch(ctx, s.blobPath(id))
}

func (s *BlobStore) Save(ctx context.Context, a *model.Artifact) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", a.ID, err)
	}
	_, err = s.client.Upload(ctx, s.blobPath(a.ID), data, map[string]string{
		"model_id": a.ModelID,
		"revision": strconv.Itoa(a.Revision),
		"origin":   string(a.Origin),
		"notation": string(a.Notation),
		"format":   string(a.Format),
	})
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", a.ID, err)
	}
	return nil
}

func (s *BlobStore) DropAll(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	names, err := s.client.List(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	for _, name := range names {
		if err := s.client.Delete(ctx, name); err != nil && !mcerrors.IsNotFound(err) {
			return err
		}
	}
	s.logger.Info("Dropped all artifacts", zap.String("prefix", s.prefix), zap.Int("count", len(names)))
	return s.cache.Clear(ctx)
}

func (s *BlobStore) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
