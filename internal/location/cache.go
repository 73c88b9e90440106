package location

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/driver-rides/internal/geo"
	"github.com/example/driver-rides/internal/models"
)

// Cache stores serialized geocode results. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache implements Cache on a redis client.
type RedisCache struct {
	client redis.Cmdable
	prefix string
}

func NewRedisCacheWithClient(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client, prefix: "geocode:"}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

// CachedGeocoder memoizes a Geocoder by geohash cell. Cache failures are
// logged and bypassed; only non-empty results are stored.
type CachedGeocoder struct {
	next   Geocoder
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedGeocoder(next Geocoder, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (g *CachedGeocoder) ReverseGeocode(ctx context.Context, c models.Coord) ([]models.Address, error) {
	key := geo.Cell(c)
	if b, err := g.cache.Get(ctx, key); err != nil {
		g.logger.WarnContext(ctx, "geocode cache get failed", "key", key, "error", err)
	} else if b != nil {
		var addrs []models.Address
		if err := json.Unmarshal(b, &addrs); err == nil {
			g.logger.DebugContext(ctx, "reverse geocode cache hit", "key", key)
			return addrs, nil
		}
	}

	addrs, err := g.next.ReverseGeocode(ctx, c)
	if err != nil || len(addrs) == 0 {
		return addrs, err
	}
	if b, err := json.Marshal(addrs); err == nil {
		if err := g.cache.Set(ctx, key, b, g.ttl); err != nil {
			g.logger.WarnContext(ctx, "geocode cache set failed", "key", key, "error", err)
		}
	}
	return addrs, nil
}
