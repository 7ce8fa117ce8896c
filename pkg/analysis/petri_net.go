package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/modelchain/pkg/cache"
	"github.com/wehubfusion/modelchain/pkg/model"
)

// PetriNets derives Petri nets and reuses ones precomputed for the same source artifact.
type PetriNets struct {
	cache  cache.Cache
	logger *zap.Logger
}

// NewPetriNets creates a deriver. A nil cache disables reuse.
func NewPetriNets(c cache.Cache, logger *zap.Logger) *PetriNets {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PetriNets{cache: c, logger: logger}
}

// CacheKey is the cache key of the Petri net derived from a source artifact.
func CacheKey(sourceID string) string {
	return "petri-net:" + sourceID
}

// Derive returns the Petri net for pm, from the cache when sourceID has one.
// Cache failures are logged and fall back to computing the net.
func (p *PetriNets) Derive(ctx context.Context, sourceID string, pm *model.ProcessModel) (*model.PetriNet, bool, error) {
	key := CacheKey(sourceID)

	var cached model.PetriNet
	hit, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.logger.Warn("Petri net cache lookup failed", zap.String("sourceID", sourceID), zap.Error(err))
	}
	if hit {
		return &cached, true, nil
	}

	net, err := model.NewPetriNet(pm)
	if err != nil {
		return nil, false, fmt.Errorf("derive petri net: %w", err)
	}
	if err := p.cache.Set(ctx, key, net); err != nil {
		p.logger.Warn("Petri net cache store failed", zap.String("sourceID", sourceID), zap.Error(err))
	}
	return net, false, nil
}
