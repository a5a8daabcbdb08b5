// Package cache wraps a store.Backend with a TTL read cache.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/shrimpsizemoose/semla/internal/store"
)

type Backend struct {
	next  store.Backend
	cache *gocache.Cache
}

// New caches successful loads for ttl. Writes go through to next first and
// only then refresh the cache, so a failed write never leaves a cached value
// the backend does not have.
func New(next store.Backend, ttl time.Duration) *Backend {
	return &Backend{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	if v, ok := b.cache.Get(key); ok {
		return clone(v.([]byte)), nil
	}

	v, err := b.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	b.cache.SetDefault(key, clone(v))
	return v, nil
}

func (b *Backend) Save(ctx context.Context, key string, value []byte) error {
	if err := b.next.Save(ctx, key, value); err != nil {
		b.cache.Delete(key)
		return err
	}
	b.cache.SetDefault(key, clone(value))
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.cache.Delete(key)
	return b.next.Delete(ctx, key)
}

// Invalidate drops everything cached, e.g. after a backup restore.
func (b *Backend) Invalidate() {
	b.cache.Flush()
}

func (b *Backend) Close() error {
	b.cache.Flush()
	return b.next.Close()
}

func clone(v []byte) []byte {
	return append([]byte(nil), v...)
}
