package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotSource loads calendar snapshots.
type SnapshotSource interface {
	Load(ctx context.Context, businessID string) (*Snapshot, error)
}

// CachedLoader wraps a snapshot source with optional short-TTL Redis
// caching. Calendar rules change rarely and a bounded staleness window is
// acceptable; slot lists themselves are never cached.
type CachedLoader struct {
	source SnapshotSource
	redis  *redis.Client
	ttl    time.Duration
}

// NewCachedLoader creates a cached loader. With a nil client or
// non-positive TTL it degrades to a pass-through.
func NewCachedLoader(source SnapshotSource, rdb *redis.Client, ttl time.Duration) *CachedLoader {
	return &CachedLoader{source: source, redis: rdb, ttl: ttl}
}

// Load returns a cached snapshot when present, falling back to the source.
// Cache failures are treated as misses.
func (c *CachedLoader) Load(ctx context.Context, businessID string) (*Snapshot, error) {
	key := fmt.Sprintf("calendar:%s", businessID)

	if snap, ok := c.readCache(ctx, key); ok {
		return snap, nil
	}

	snap, err := c.source.Load(ctx, businessID)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, snap)
	return snap, nil
}

// Invalidate drops the cached snapshot for a business after a rule change.
func (c *CachedLoader) Invalidate(ctx context.Context, businessID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, fmt.Sprintf("calendar:%s", businessID)).Err()
}

func (c *CachedLoader) readCache(ctx context.Context, key string) (*Snapshot, bool) {
	if c.redis == nil || c.ttl <= 0 {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

func (c *CachedLoader) writeCache(ctx context.Context, key string, snap *Snapshot) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}
