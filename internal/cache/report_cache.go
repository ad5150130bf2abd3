package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReportCache stores rendered dashboard reports keyed by their day range.
// With no redis client every lookup is a miss and every store a no-op.
type ReportCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewReportCache(client *redis.Client, log *zap.Logger) *ReportCache {
	return &ReportCache{
		client: client,
		log:    log.Named("cache.report"),
	}
}

func reportKey(days int) string {
	return fmt.Sprintf("home:days:%d", days)
}

func (c *ReportCache) Get(ctx context.Context, days int, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, reportKey(days)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.Int("days", days), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("cache entry unreadable", zap.Int("days", days), zap.Error(err))
		return false
	}
	return true
}

func (c *ReportCache) Set(ctx context.Context, days int, report any, ttl time.Duration) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		c.log.Warn("cache entry not serializable", zap.Int("days", days), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, reportKey(days), raw, ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.Int("days", days), zap.Error(err))
	}
}
