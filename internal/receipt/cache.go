package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps receipt stats in Redis with a short TTL. A nil Cache is a
// no-op so the service works without Redis in tests.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func statsKey(receiptID int64) string {
	return fmt.Sprintf("receipt:stats:%d", receiptID)
}

// GetStats returns the cached stats, reporting a miss via ok=false.
func (c *Cache) GetStats(ctx context.Context, receiptID int64) (Stats, bool) {
	if c == nil || c.client == nil {
		return Stats{}, false
	}
	raw, err := c.client.Get(ctx, statsKey(receiptID)).Bytes()
	if err != nil {
		return Stats{}, false
	}
	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return Stats{}, false
	}
	return stats, true
}

// SetStats stores stats under the receipt key.
func (c *Cache) SetStats(ctx context.Context, stats Stats) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, statsKey(stats.ReceiptID), raw, c.ttl).Err()
}

// Invalidate drops the cached stats after any quantity-changing operation.
func (c *Cache) Invalidate(ctx context.Context, receiptID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, statsKey(receiptID)).Err()
}
