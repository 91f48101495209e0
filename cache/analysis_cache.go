package cache

import (
	"context"
	"fmt"
	"time"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
	"flashsell-engine/logging"
)

// AnalysisCache keeps the current day's market analyses in Redis.
// Entries expire at the next midnight, so a key never outlives its day.
type AnalysisCache struct {
	redis *RedisClient
	now   func() time.Time
}

// NewAnalysisCache creates a new market analysis cache instance
func NewAnalysisCache(redis *RedisClient) *AnalysisCache {
	return &AnalysisCache{
		redis: redis,
		now:   time.Now,
	}
}

// WithClock overrides the clock that decides which day is current
func (c *AnalysisCache) WithClock(now func() time.Time) *AnalysisCache {
	c.now = now
	return c
}

// AnalysisKey is the Redis key of one (category, time range, day) analysis
func AnalysisKey(categoryID int64, timeRangeDays int, day time.Time) string {
	return fmt.Sprintf("market:analysis:%d:%d:%s", categoryID, timeRangeDays, helpers.FormatDate(day))
}

// GetAnalysis retrieves a cached analysis.
// Returns the analysis and true if found, nil and false otherwise.
func (c *AnalysisCache) GetAnalysis(ctx context.Context, categoryID int64, timeRangeDays int, day time.Time) (*models.MarketAnalysis, bool) {
	if c.redis == nil {
		return nil, false
	}

	var analysis models.MarketAnalysis
	if err := c.redis.Get(ctx, AnalysisKey(categoryID, timeRangeDays, day), &analysis); err != nil {
		if !IsMiss(err) {
			logging.Debug().Err(err).Msg("redis read failed, treating as miss")
		}
		return nil, false
	}
	return &analysis, true
}

// SetAnalysis caches an analysis until the end of its analysis day
func (c *AnalysisCache) SetAnalysis(ctx context.Context, analysis *models.MarketAnalysis) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	now := c.now()
	// Stale analyses are served from the store only
	if !helpers.SameDay(analysis.AnalysisDate, now) {
		return nil
	}
	key := AnalysisKey(analysis.CategoryID, analysis.TimeRangeDays, analysis.AnalysisDate)
	return c.redis.Set(ctx, key, analysis, helpers.EndOfDay(now))
}
