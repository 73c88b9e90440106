package route

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/driver-rides/internal/models"
)

// Cache is a tiny in-memory cache for route lookups keyed by endpoints.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	path []models.Coord
	ts   time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Get returns a copy of the cached path and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) ([]models.Coord, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return nil, false
	}
	return append([]models.Coord(nil), e.path...), true
}

// Set stores a path in the cache.
func (c *Cache) Set(a, b models.Coord, path []models.Coord) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{path: append([]models.Coord(nil), path...), ts: time.Now()}
	c.mu.Unlock()
}

// CachedRouter consults Cache before Next. Only paths that pass Validate are stored.
type CachedRouter struct {
	Next  Router
	Cache *Cache
}

func (r *CachedRouter) Route(ctx context.Context, from, to models.Coord) ([]models.Coord, error) {
	if p, ok := r.Cache.Get(from, to); ok && Validate(p, from, to) == nil {
		return p, nil
	}
	p, err := r.Next.Route(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if Validate(p, from, to) == nil {
		r.Cache.Set(from, to, p)
	}
	return p, nil
}
