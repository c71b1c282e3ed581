package resolver

import (
	"context"
	"strings"
	"time"

	cachelib "github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/looplj/forgehub/internal/storage"
)

// Cached wraps a resolver with a read-through in-memory cache. Only
// resolved objects are cached; unresolved ids are re-checked every call
// so a reference that comes back is seen promptly.
type Cached struct {
	next  Resolver
	cache *cachelib.Cache[storage.Record]
}

func NewCached(next Resolver, expiration, cleanupInterval time.Duration) *Cached {
	client := gocache.New(expiration, cleanupInterval)
	store := gocache_store.NewGoCache(client)

	return &Cached{
		next:  next,
		cache: cachelib.New[storage.Record](store),
	}
}

func cacheKey(id string, fields []string) string {
	return id + "|" + strings.Join(fields, ",")
}

func (c *Cached) Resolve(ctx context.Context, ids []string, fields []string) ([]storage.Record, error) {
	out := make([]storage.Record, len(ids))

	var (
		missing    []string
		missingIdx []int
	)

	for i, id := range ids {
		if obj, err := c.cache.Get(ctx, cacheKey(id, fields)); err == nil && obj != nil {
			out[i] = obj
			continue
		}

		missing = append(missing, id)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	resolved, err := c.next.Resolve(ctx, missing, fields)
	if err != nil {
		return nil, err
	}

	for i, obj := range resolved {
		out[missingIdx[i]] = obj

		if obj != nil {
			_ = c.cache.Set(ctx, cacheKey(missing[i], fields), obj)
		}
	}

	return out, nil
}
