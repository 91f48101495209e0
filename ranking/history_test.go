package ranking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
)

func row(productID, categoryID int64, date time.Time, rank int) models.HotProductScore {
	return models.HotProductScore{
		ProductID:      productID,
		CategoryID:     categoryID,
		HotScore:       decimal.NewFromInt(int64(100 - rank)),
		RankInCategory: rank,
		RecommendDate:  helpers.Day(date),
		DaysOnList:     1,
	}
}

// seed writes one ranking per day for the last `days` days directly into the store
func seed(t *testing.T, store *MemoryStore, days int) {
	t.Helper()
	for d := 0; d < days; d++ {
		date := helpers.AddDays(testToday, -d)
		require.NoError(t, store.ReplaceRanking(context.Background(), date, 1, []models.HotProductScore{
			row(42, 1, date, 1),
			row(43, 1, date, 2),
		}))
	}
}

func TestHistoryFloor(t *testing.T) {
	h := NewHistory(NewMemoryStore()).WithClock(func() time.Time { return testToday })
	assert.Equal(t, "2026-03-09", helpers.FormatDate(h.Floor()))
}

func TestProductHistoryNeverReturnsExpiredRows(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, 10)
	h := NewHistory(store).WithClock(func() time.Time { return testToday })

	rows, err := h.ProductHistory(context.Background(), 42, helpers.AddDays(testToday, -30), testToday)
	require.NoError(t, err)

	require.Len(t, rows, RetentionDays)
	assert.Equal(t, helpers.FormatDate(testToday), helpers.FormatDate(rows[0].RecommendDate))
	for i, r := range rows {
		assert.False(t, r.RecommendDate.Before(h.Floor()))
		if i > 0 {
			assert.True(t, rows[i-1].RecommendDate.After(r.RecommendDate))
		}
	}
}

func TestProductHistoryInclusiveBounds(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, 7)
	h := NewHistory(store).WithClock(func() time.Time { return testToday })

	rows, err := h.ProductHistory(context.Background(), 42, helpers.AddDays(testToday, -3), helpers.AddDays(testToday, -1))
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = h.ProductHistory(context.Background(), 42, testToday, helpers.AddDays(testToday, -1))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = h.ProductHistory(context.Background(), 999, helpers.AddDays(testToday, -6), testToday)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPurge(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, 10)
	h := NewHistory(store).WithClock(func() time.Time { return testToday })
	ctx := context.Background()

	deleted, err := h.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), deleted)
	assert.Equal(t, 14, store.Len())

	// Day 7 ago is gone, day 6 ago is kept
	rows, err := store.FindByDateAndCategory(ctx, helpers.AddDays(testToday, -7), 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = store.FindByDateAndCategory(ctx, helpers.AddDays(testToday, -6), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	deleted, err = h.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSaveRankingRejectsExpiredDate(t *testing.T) {
	h := NewHistory(NewMemoryStore()).WithClock(func() time.Time { return testToday })

	old := helpers.AddDays(testToday, -7)
	err := h.SaveRanking(context.Background(), old, 1, []models.HotProductScore{row(1, 1, old, 1)})
	assert.ErrorIs(t, err, ErrOutsideRetention)
}

func TestReadsOfExpiredDatesAreEmptyBeforePurge(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, 10)
	h := NewHistory(store).WithClock(func() time.Time { return testToday })

	rows, err := h.Ranking(context.Background(), helpers.AddDays(testToday, -8), 1)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = h.ByDate(context.Background(), helpers.AddDays(testToday, -8))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPurgeConcurrentWithSameDayWrites(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, 10)
	h := NewHistory(store).WithClock(func() time.Time { return testToday })
	ctx := context.Background()

	var wg sync.WaitGroup
	for cat := int64(2); cat <= 20; cat++ {
		wg.Add(2)
		go func(cat int64) {
			defer wg.Done()
			assert.NoError(t, h.SaveRanking(ctx, testToday, cat, []models.HotProductScore{row(cat*100, cat, testToday, 1)}))
		}(cat)
		go func() {
			defer wg.Done()
			_, err := h.Purge(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	today, err := h.ByDate(ctx, testToday)
	require.NoError(t, err)
	assert.Len(t, today, 2+19)

	stale, err := store.FindByCategoryBetween(ctx, 1, helpers.AddDays(testToday, -30), helpers.AddDays(testToday, -7))
	require.NoError(t, err)
	assert.Empty(t, stale)
}
