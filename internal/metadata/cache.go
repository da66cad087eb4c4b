package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"cinematch/internal/platform/redis"

	id "cinematch/pkg/domain"
)

// CachedDescriber wraps a Describer with a Redis read-through cache. Movie
// metadata is effectively immutable, so a generous TTL is safe. Cache errors
// fall through to the upstream fetch; the cache is an optimization, never a
// dependency.
type CachedDescriber struct {
	next   Describer
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedDescriber(next Describer, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedDescriber {
	return &CachedDescriber{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(item id.ItemID) string {
	return fmt.Sprintf("metadata:movie:%d", int64(item))
}

func (d *CachedDescriber) Describe(ctx context.Context, item id.ItemID) (Enrichment, error) {
	key := cacheKey(item)

	raw, err := d.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached Enrichment
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		d.logger.WarnContext(ctx, "discarding corrupt metadata cache entry", "key", key)
	case !errors.Is(err, goredis.Nil):
		d.logger.WarnContext(ctx, "metadata cache read failed", "key", key, "error", err)
	}

	enrichment, err := d.next.Describe(ctx, item)
	if err != nil {
		return Enrichment{}, err
	}

	if encoded, err := json.Marshal(enrichment); err == nil {
		if err := d.cache.Set(ctx, key, encoded, d.ttl).Err(); err != nil {
			d.logger.WarnContext(ctx, "metadata cache write failed", "key", key, "error", err)
		}
	}
	return enrichment, nil
}
