package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	models "flashsell-engine/database/models_pkg"
)

var testDay = time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

func unreachableClient(t *testing.T) *RedisClient {
	t.Helper()
	rc := NewRedisClientFrom(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}))
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "market:analysis:7:90:2026-03-15", AnalysisKey(7, 90, testDay))
	assert.Equal(t, "hot_products:2026-03-15:12", HotProductKey(testDay, 12))
}

func TestNilClientIsSafe(t *testing.T) {
	ctx := context.Background()
	var rc *RedisClient

	assert.ErrorIs(t, rc.Set(ctx, "k", 1, time.Minute), ErrNotInitialized)
	assert.ErrorIs(t, rc.Get(ctx, "k", new(int)), ErrNotInitialized)
	assert.ErrorIs(t, rc.Delete(ctx, "k"), ErrNotInitialized)
	_, err := rc.SetNX(ctx, "k", 1, time.Minute)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, rc.Publish(ctx, "c", "m"), ErrNotInitialized)
	assert.NoError(t, rc.Close())

	analyses := NewAnalysisCache(nil)
	_, ok := analyses.GetAnalysis(ctx, 1, 30, testDay)
	assert.False(t, ok)
	assert.Error(t, analyses.SetAnalysis(ctx, &models.MarketAnalysis{AnalysisDate: testDay}))

	hot := NewHotProductCache(nil)
	_, ok = hot.GetRanking(ctx, testDay, 1)
	assert.False(t, ok)
	assert.NoError(t, hot.Invalidate(ctx, testDay, 1))
	assert.NoError(t, hot.PublishSweep(ctx, map[string]int{"categories_with_data": 45}))
}

func TestUnreachableRedisDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	rc := unreachableClient(t)

	analyses := NewAnalysisCache(rc)
	analyses.now = func() time.Time { return testDay }
	_, ok := analyses.GetAnalysis(ctx, 1, 30, testDay)
	assert.False(t, ok)
	assert.Error(t, analyses.SetAnalysis(ctx, &models.MarketAnalysis{CategoryID: 1, TimeRangeDays: 30, AnalysisDate: testDay}))

	hot := NewHotProductCache(rc)
	_, ok = hot.GetRanking(ctx, testDay, 1)
	assert.False(t, ok)
	assert.Error(t, hot.SetRanking(ctx, testDay, 1, nil))
	assert.Error(t, hot.FillRanking(ctx, testDay, 1, nil))
}

func TestSetAnalysisSkipsPastDays(t *testing.T) {
	analyses := NewAnalysisCache(unreachableClient(t))
	analyses.now = func() time.Time { return testDay }

	// Would fail against the unreachable client if it attempted a write
	err := analyses.SetAnalysis(context.Background(), &models.MarketAnalysis{AnalysisDate: testDay.AddDate(0, 0, -1)})
	assert.NoError(t, err)
}

func TestIsMiss(t *testing.T) {
	assert.True(t, IsMiss(redis.Nil))
	assert.False(t, IsMiss(ErrNotInitialized))
}
