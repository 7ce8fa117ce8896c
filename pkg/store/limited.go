package store

import (
	"context"
	"errors"
	"io"

	"github.com/wehubfusion/modelchain/pkg/cache"
	"github.com/wehubfusion/modelchain/pkg/concurrency"
	"github.com/wehubfusion/modelchain/pkg/model"
)

// Limited bounds concurrent single-artifact calls (LoadOne, Save) against a
// DataSource, such as seeding or look-ups made next to a running chain. The
// backing store sees at most the limiter's capacity of calls at a time, and a
// store that keeps failing trips the limiter's circuit breaker. Scans through
// LoadMatching are not limited.
type Limited struct {
	DataSource
	limiter *concurrency.Limiter
}

// NewLimited wraps src with limiter.
func NewLimited(src DataSource, limiter *concurrency.Limiter) *Limited {
	return &Limited{DataSource: src, limiter: limiter}
}

func (l *Limited) LoadOne(ctx context.Context, id string) (*model.Artifact, error) {
	var a *model.Artifact
	err := l.limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		a, err = l.DataSource.LoadOne(ctx, id)
		return err
	})
	return a, err
}

func (l *Limited) Save(ctx context.Context, a *model.Artifact) error {
	return l.limiter.Do(ctx, func(ctx context.Context) error {
		return l.DataSource.Save(ctx, a)
	})
}

// Close closes the wrapped store and, when it holds a connection, its cache.
func (l *Limited) Close() error {
	err := l.DataSource.Close()
	if c, ok := l.Cache().(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

// Cache returns the wrapped store's derived-artifact cache, if it has one.
func (l *Limited) Cache() cache.Cache {
	return CacheOf(l.DataSource)
}

// Limiter returns the limiter guarding the store.
func (l *Limited) Limiter() *concurrency.Limiter { return l.limiter }

// Unwrap returns the wrapped data source.
func (l *Limited) Unwrap() DataSource { return l.DataSource }

// CacheOf returns the derived-artifact cache of src, or a no-op cache.
// Decorators that embed a DataSource are seen through when they implement
// Unwrap() DataSource.
func CacheOf(src DataSource) cache.Cache {
	for src != nil {
		if c, ok := src.(interface{ Cache() cache.Cache }); ok {
			if dc := c.Cache(); dc != nil {
				return dc
			}
		}
		u, ok := src.(interface{ Unwrap() DataSource })
		if !ok {
			break
		}
		src = u.Unwrap()
	}
	return cache.Nop{}
}
