package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"xdial-backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// CountsCache keeps recent category-count results in redis so dashboard
// refreshes do not re-scan call rows. Staleness within the TTL is
// acceptable; every cache failure degrades to a recompute.
type CountsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCountsCache(rdb *redis.Client, ttl time.Duration) *CountsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CountsCache{rdb: rdb, ttl: ttl}
}

func countsKey(associationID int64, latestOnly bool, mappingVersion string) string {
	return fmt.Sprintf("xdial:category_counts:%s:%d:%t", mappingVersion, associationID, latestOnly)
}

func (c *CountsCache) Get(ctx context.Context, associationID int64, latestOnly bool, mappingVersion string) ([]CategoryCount, bool) {
	data, err := c.rdb.Get(ctx, countsKey(associationID, latestOnly, mappingVersion)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.From(ctx).Debug("counts cache read failed", "error", err)
		}
		return nil, false
	}
	var out []CategoryCount
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *CountsCache) Put(ctx context.Context, associationID int64, latestOnly bool, mappingVersion string, counts []CategoryCount) {
	data, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, countsKey(associationID, latestOnly, mappingVersion), data, c.ttl).Err(); err != nil {
		logger.From(ctx).Debug("counts cache write failed", "error", err)
	}
}
