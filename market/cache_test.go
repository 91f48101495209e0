package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
)

// fakeSource serves fixed statistics; growth windows are looked up by start date
type fakeSource struct {
	count       int64
	countErr    error
	bsr, review *float64
	rating      *float64
	competition *float64
	changes     map[string]*int64
	points      []models.SalesDataPoint

	distributionCalls atomic.Int32
}

func newFakeSource(today time.Time) *fakeSource {
	return &fakeSource{
		count:       120,
		bsr:         f64(800),
		review:      f64(600),
		rating:      f64(4.5),
		competition: f64(0.7),
		changes: map[string]*int64{
			helpers.FormatDate(helpers.AddDays(today, -30)): i64(120),
			helpers.FormatDate(helpers.AddDays(today, -60)): i64(100),
			helpers.FormatDate(helpers.AddDays(today, -7)):  i64(15),
			helpers.FormatDate(helpers.AddDays(today, -14)): i64(10),
		},
		points: []models.SalesDataPoint{
			{Date: helpers.AddDays(today, -1), SalesVolume: 100},
			{Date: today, SalesVolume: 200},
		},
	}
}

func (f *fakeSource) CountProductsByCategory(context.Context, int64) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeSource) AverageBsrRank(context.Context, int64) (*float64, error) { return f.bsr, nil }
func (f *fakeSource) AverageReviewCount(context.Context, int64) (*float64, error) {
	return f.review, nil
}
func (f *fakeSource) AverageRating(context.Context, int64) (*float64, error) { return f.rating, nil }
func (f *fakeSource) AverageCompetitionScore(context.Context, int64) (*float64, error) {
	return f.competition, nil
}

func (f *fakeSource) ProductCountChange(_ context.Context, _ int64, start, _ time.Time) (*int64, error) {
	return f.changes[helpers.FormatDate(start)], nil
}

func (f *fakeSource) SalesDistribution(context.Context, int64, time.Time, time.Time) ([]models.SalesDataPoint, error) {
	f.distributionCalls.Add(1)
	return f.points, nil
}

type fakeLookaside struct {
	mu   sync.Mutex
	rows map[string]*models.MarketAnalysis
}

func (l *fakeLookaside) GetAnalysis(_ context.Context, categoryID int64, days int, day time.Time) (*models.MarketAnalysis, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.rows[lookasideKey(categoryID, days, day)]
	return a, ok
}

func (l *fakeLookaside) SetAnalysis(_ context.Context, a *models.MarketAnalysis) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rows == nil {
		l.rows = map[string]*models.MarketAnalysis{}
	}
	l.rows[lookasideKey(a.CategoryID, a.TimeRangeDays, a.AnalysisDate)] = a
	return nil
}

func lookasideKey(categoryID int64, days int, day time.Time) string {
	return fmt.Sprintf("%d:%d:%s", categoryID, days, helpers.FormatDate(day))
}

var testToday = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*fakeSource, *MemoryStore, *Engine) {
	t.Helper()
	src := newFakeSource(helpers.Day(testToday))
	store := NewMemoryStore()
	engine := NewEngine(src, store).WithClock(func() time.Time { return testToday })
	return src, store, engine
}

func TestGenerate(t *testing.T) {
	_, store, engine := setup(t)

	a, err := engine.Generate(context.Background(), 7, 90)
	require.NoError(t, err)

	assert.Equal(t, int64(7), a.CategoryID)
	assert.True(t, helpers.SameDay(testToday, a.AnalysisDate))
	assert.Equal(t, int64(4500), a.MarketSize)
	assert.Equal(t, "20.00", a.MonthlyGrowthRate.StringFixed(2))
	assert.Equal(t, "0.88", a.CompetitionScore.StringFixed(2))
	assert.Equal(t, "0.78", a.EntryBarrier.StringFixed(2))
	assert.Equal(t, "0.18", a.PotentialScore.StringFixed(2))
	assert.Equal(t, "50.00", a.WeekOverWeek.StringFixed(2))
	assert.Equal(t, "20.00", a.MonthOverMonth.StringFixed(2))
	assert.Len(t, a.SalesDistribution, 2)
	assert.Equal(t, 1, store.Len())
}

func TestGenerateShortRangeSkipsMonthlyGrowth(t *testing.T) {
	_, _, engine := setup(t)

	a, err := engine.Generate(context.Background(), 7, 30)
	require.NoError(t, err)
	assert.Equal(t, "0.00", a.MonthlyGrowthRate.StringFixed(2))
	// Month-over-month is independent of the requested range
	assert.Equal(t, "20.00", a.MonthOverMonth.StringFixed(2))
}

func TestGenerateDegradesMissingStatistics(t *testing.T) {
	src, _, engine := setup(t)
	src.bsr = nil
	src.rating = nil
	src.changes = map[string]*int64{}

	a, err := engine.Generate(context.Background(), 7, 365)
	require.NoError(t, err)
	assert.Equal(t, "0.50", a.CompetitionScore.StringFixed(2))
	assert.Equal(t, "0.50", a.EntryBarrier.StringFixed(2))
	assert.Equal(t, "0.00", a.MonthlyGrowthRate.StringFixed(2))
	assert.Equal(t, "0.25", a.PotentialScore.StringFixed(2))
}

func TestGenerateSameDayReplaces(t *testing.T) {
	src, store, engine := setup(t)

	first, err := engine.Generate(context.Background(), 7, 90)
	require.NoError(t, err)

	src.bsr = f64(60000)
	second, err := engine.Generate(context.Background(), 7, 90)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, first.ID, second.ID)
	latest, err := store.FindLatest(context.Background(), 7, 90)
	require.NoError(t, err)
	assert.Equal(t, "0.56", latest.CompetitionScore.StringFixed(2))
}

func TestGetMarketAnalysisRejectsInvalidRange(t *testing.T) {
	_, _, engine := setup(t)
	cache := NewCache(engine)

	_, err := cache.GetMarketAnalysis(context.Background(), 7, 60)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestGetMarketAnalysisInsufficientSample(t *testing.T) {
	tests := []struct {
		count int64
		empty bool
	}{
		{0, true},
		{9, true},
		{10, false},
		{500, false},
	}

	for _, tt := range tests {
		src, _, engine := setup(t)
		src.count = tt.count
		cache := NewCache(engine)

		a, err := cache.GetMarketAnalysis(context.Background(), 7, 30)
		require.NoError(t, err)
		if tt.empty {
			assert.Nil(t, a, "count %d", tt.count)
		} else {
			assert.NotNil(t, a, "count %d", tt.count)
		}
	}
}

func TestGetMarketAnalysisCountError(t *testing.T) {
	src, _, engine := setup(t)
	src.countErr = errors.New("connection refused")

	_, err := NewCache(engine).GetMarketAnalysis(context.Background(), 7, 30)
	assert.Error(t, err)
}

func TestGetMarketAnalysisSameDayFreshness(t *testing.T) {
	src, store, engine := setup(t)
	cache := NewCache(engine)
	ctx := context.Background()

	first, err := cache.GetMarketAnalysis(ctx, 7, 90)
	require.NoError(t, err)
	second, err := cache.GetMarketAnalysis(ctx, 7, 90)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), src.distributionCalls.Load())
	assert.Equal(t, 1, store.Len())
}

func TestGetMarketAnalysisRegeneratesNextDay(t *testing.T) {
	src, store, engine := setup(t)
	cache := NewCache(engine)
	ctx := context.Background()

	_, err := cache.GetMarketAnalysis(ctx, 7, 90)
	require.NoError(t, err)

	engine.WithClock(func() time.Time { return testToday.Add(24 * time.Hour) })
	a, err := cache.GetMarketAnalysis(ctx, 7, 90)
	require.NoError(t, err)

	assert.True(t, helpers.SameDay(testToday.Add(24*time.Hour), a.AnalysisDate))
	assert.Equal(t, int32(2), src.distributionCalls.Load())
	assert.Equal(t, 2, store.Len())
}

func TestGetMarketAnalysisUsesLookaside(t *testing.T) {
	src, _, engine := setup(t)
	look := &fakeLookaside{}
	cache := NewCache(engine, WithLookaside(look))
	ctx := context.Background()

	_, err := cache.GetMarketAnalysis(ctx, 7, 30)
	require.NoError(t, err)

	_, ok := look.GetAnalysis(ctx, 7, 30, helpers.Day(testToday))
	assert.True(t, ok)

	_, err = cache.GetMarketAnalysis(ctx, 7, 30)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.distributionCalls.Load())
}

func TestGetMarketAnalysisServeStale(t *testing.T) {
	src, store, engine := setup(t)
	ctx := context.Background()

	yesterday := &models.MarketAnalysis{CategoryID: 7, TimeRangeDays: 30, AnalysisDate: helpers.AddDays(testToday, -1)}
	require.NoError(t, store.Save(ctx, yesterday))

	cache := NewCache(engine, WithServeStale(true))
	a, err := cache.GetMarketAnalysis(ctx, 7, 30)
	require.NoError(t, err)
	assert.True(t, helpers.SameDay(helpers.AddDays(testToday, -1), a.AnalysisDate))

	assert.Eventually(t, func() bool {
		latest, _ := store.FindLatest(ctx, 7, 30)
		return latest != nil && helpers.SameDay(testToday, latest.AnalysisDate)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), src.distributionCalls.Load())
}

func TestGetMarketAnalysisConcurrentMissesCoalesce(t *testing.T) {
	_, store, engine := setup(t)
	cache := NewCache(engine)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := cache.GetMarketAnalysis(context.Background(), 7, 365)
			assert.NoError(t, err)
			assert.NotNil(t, a)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
}
