package market

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
	"flashsell-engine/logging"
	"flashsell-engine/metrics"
)

// DefaultMinProductCount is the smallest category sample that is analysed
const DefaultMinProductCount = 10

// Cache answers analysis requests with same-day freshness: an analysis
// produced today is reused, anything older triggers regeneration.
type Cache struct {
	engine      *Engine
	lookaside   Lookaside
	minProducts int64
	serveStale  bool

	flight singleflight.Group
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithLookaside puts a fast cache (e.g. Redis) in front of the store
func WithLookaside(l Lookaside) CacheOption {
	return func(c *Cache) { c.lookaside = l }
}

// WithMinProductCount overrides DefaultMinProductCount
func WithMinProductCount(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.minProducts = int64(n)
		}
	}
}

// WithServeStale returns the previous analysis on a miss and regenerates in
// the background instead of blocking the caller.
func WithServeStale(enabled bool) CacheOption {
	return func(c *Cache) { c.serveStale = enabled }
}

// NewCache creates an analysis cache over the engine's store
func NewCache(engine *Engine, opts ...CacheOption) *Cache {
	c := &Cache{
		engine:      engine,
		minProducts: DefaultMinProductCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetMarketAnalysis returns today's analysis for the category and window.
// It returns nil, nil when the category has too few products to analyse.
func (c *Cache) GetMarketAnalysis(ctx context.Context, categoryID int64, timeRangeDays int) (*models.MarketAnalysis, error) {
	if err := ValidateTimeRange(timeRangeDays); err != nil {
		return nil, err
	}

	count, err := c.engine.source.CountProductsByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("count products for category %d: %w", categoryID, err)
	}
	if count < c.minProducts {
		metrics.AnalysisUnavailable.Inc()
		logging.Debug().
			Int64("category_id", categoryID).
			Int64("product_count", count).
			Msg("insufficient products for market analysis")
		return nil, nil
	}

	today := c.engine.Today()

	if c.lookaside != nil {
		if a, ok := c.lookaside.GetAnalysis(ctx, categoryID, timeRangeDays, today); ok && helpers.SameDay(a.AnalysisDate, today) {
			metrics.AnalysisCacheHits.WithLabelValues("redis").Inc()
			return a, nil
		}
	}

	existing, err := c.engine.store.FindLatest(ctx, categoryID, timeRangeDays)
	if err != nil {
		return nil, fmt.Errorf("find market analysis for category %d: %w", categoryID, err)
	}
	if existing != nil && helpers.SameDay(existing.AnalysisDate, today) {
		metrics.AnalysisCacheHits.WithLabelValues("store").Inc()
		c.remember(ctx, existing)
		return existing, nil
	}

	key := fmt.Sprintf("%d:%d:%s", categoryID, timeRangeDays, helpers.FormatDate(today))

	if c.serveStale && existing != nil {
		metrics.AnalysisCacheHits.WithLabelValues("stale").Inc()
		bg := context.WithoutCancel(ctx)
		c.flight.DoChan(key, func() (interface{}, error) {
			return c.regenerate(bg, categoryID, timeRangeDays)
		})
		return existing, nil
	}

	metrics.AnalysisCacheMisses.Inc()
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		return c.regenerate(ctx, categoryID, timeRangeDays)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.MarketAnalysis), nil
}

func (c *Cache) regenerate(ctx context.Context, categoryID int64, timeRangeDays int) (*models.MarketAnalysis, error) {
	a, err := c.engine.Generate(ctx, categoryID, timeRangeDays)
	if err != nil {
		logging.Error().Err(err).
			Int64("category_id", categoryID).
			Int("time_range_days", timeRangeDays).
			Msg("market analysis regeneration failed")
		return nil, err
	}
	c.remember(ctx, a)
	return a, nil
}

func (c *Cache) remember(ctx context.Context, a *models.MarketAnalysis) {
	if c.lookaside == nil {
		return
	}
	if err := c.lookaside.SetAnalysis(ctx, a); err != nil {
		logging.Warn().Err(err).Int64("category_id", a.CategoryID).Msg("failed to cache market analysis")
	}
}
