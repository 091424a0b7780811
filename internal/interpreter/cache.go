package interpreter

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxCachedDirs bounds how many working directories a CachingResolver remembers.
const maxCachedDirs = 64

// CachingResolver remembers resolutions per working directory for a fixed TTL.
// Failures are never cached.
type CachingResolver struct {
	next  Resolver
	cache *expirable.LRU[string, Resolved]
}

// NewCachingResolver wraps next with a TTL cache. A non-positive ttl returns
// next unchanged.
func NewCachingResolver(next Resolver, ttl time.Duration) Resolver {
	if ttl <= 0 {
		return next
	}
	return &CachingResolver{
		next:  next,
		cache: expirable.NewLRU[string, Resolved](maxCachedDirs, nil, ttl),
	}
}

// Resolve returns the cached resolution for workDir or delegates to next.
func (c *CachingResolver) Resolve(ctx context.Context, workDir string) (*Resolved, error) {
	if r, ok := c.cache.Get(workDir); ok {
		return &r, nil
	}

	r, err := c.next.Resolve(ctx, workDir)
	if err != nil {
		return nil, err
	}
	c.cache.Add(workDir, *r)
	return r, nil
}
