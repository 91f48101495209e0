package cache

import (
	"context"
	"fmt"
	"time"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
	"flashsell-engine/logging"
)

// HotProductTTL bounds how long a published ranking is served from Redis
const HotProductTTL = 6 * time.Hour

// SweepChannel receives a summary after every daily sweep
const SweepChannel = "hot_products:sweep"

// HotProductCache caches published category rankings
type HotProductCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewHotProductCache creates a new hot product cache instance
func NewHotProductCache(redis *RedisClient) *HotProductCache {
	return &HotProductCache{redis: redis, ttl: HotProductTTL}
}

// HotProductKey is the Redis key of one (day, category) ranking
func HotProductKey(date time.Time, categoryID int64) string {
	return fmt.Sprintf("hot_products:%s:%d", helpers.FormatDate(date), categoryID)
}

// GetRanking retrieves a cached ranking ordered by ascending rank
func (c *HotProductCache) GetRanking(ctx context.Context, date time.Time, categoryID int64) ([]models.HotProductScore, bool) {
	if c.redis == nil {
		return nil, false
	}

	var rows []models.HotProductScore
	if err := c.redis.Get(ctx, HotProductKey(date, categoryID), &rows); err != nil {
		if !IsMiss(err) {
			logging.Debug().Err(err).Msg("redis read failed, treating as miss")
		}
		return nil, false
	}
	return rows, true
}

// SetRanking overwrites the cached ranking with a freshly published one.
// Empty rankings are cached too so that categories without data do not hit
// the store on every request.
func (c *HotProductCache) SetRanking(ctx context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}
	if rows == nil {
		rows = []models.HotProductScore{}
	}
	return c.redis.Set(ctx, HotProductKey(date, categoryID), rows, c.ttl)
}

// FillRanking caches rows read from the store unless a ranking is already
// cached, so a slow reader never replaces a newer published ranking.
func (c *HotProductCache) FillRanking(ctx context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}
	if rows == nil {
		rows = []models.HotProductScore{}
	}
	_, err := c.redis.SetNX(ctx, HotProductKey(date, categoryID), rows, c.ttl)
	return err
}

// Invalidate removes a cached ranking after it has been republished
func (c *HotProductCache) Invalidate(ctx context.Context, date time.Time, categoryID int64) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Delete(ctx, HotProductKey(date, categoryID))
}

// PublishSweep announces a finished sweep on SweepChannel
func (c *HotProductCache) PublishSweep(ctx context.Context, summary interface{}) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Publish(ctx, SweepChannel, summary)
}
