package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/modelchain/pkg/cache"
	"github.com/wehubfusion/modelchain/pkg/concurrency"
	"github.com/wehubfusion/modelchain/pkg/config"
	"github.com/wehubfusion/modelchain/pkg/storage"
)

// OpenCache builds the derived-artifact cache selected by cfg.
func OpenCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return cache.Nop{}, nil
	case config.CacheRedis:
		return cache.NewRedis(ctx, cache.RedisOptions{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.CachePrefix,
			TTL:      cfg.CacheTTL,
		}, logger)
	default:
		return cache.NewMemory(), nil
	}
}

// Open builds and opens the data source selected by cfg, wrapped in a
// Limited sized by cfg.StoreConcurrency.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Limited, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	derived, err := OpenCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var src DataSource
	switch cfg.StoreBackend {
	case config.StoreBlob:
		client, err := storage.NewAzureBlobClient(cfg.BlobConnectionString, cfg.BlobContainer, logger)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		src = NewBlobStore(client,
			WithPrefix(cfg.ArtifactPrefix),
			WithFetchers(cfg.Workers),
			WithDerivedCache(derived),
			WithLogger(logger))
	default:
		src = NewMemoryStore(derived)
	}

	limited := NewLimited(src, concurrency.NewLimiter(cfg.StoreConcurrency))
	if err := limited.Open(ctx); err != nil {
		_ = limited.Close()
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	logger.Info("Opened data source",
		zap.String("backend", cfg.StoreBackend),
		zap.String("cache", cfg.CacheBackend),
		zap.Int("storeConcurrency", cfg.StoreConcurrency))
	return limited, nil
}
