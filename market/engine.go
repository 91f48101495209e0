package market

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
	"flashsell-engine/logging"
	"flashsell-engine/metrics"
)

// Window lengths in days
const (
	growthWindowDays     = 30
	weekWindowDays       = 7
	monthlyGrowthMinDays = 60
)

// Engine computes market analyses from aggregate statistics
type Engine struct {
	source DataSource
	store  Store
	now    func() time.Time
}

// NewEngine creates a new market analysis engine
func NewEngine(source DataSource, store Store) *Engine {
	return &Engine{
		source: source,
		store:  store,
		now:    time.Now,
	}
}

// WithClock overrides the clock used to determine "today"
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Today returns the engine's current calendar day
func (e *Engine) Today() time.Time {
	return helpers.Day(e.now())
}

// Generate computes a fresh analysis for today and persists it, replacing any
// analysis already stored for the same key today.
func (e *Engine) Generate(ctx context.Context, categoryID int64, timeRangeDays int) (*models.MarketAnalysis, error) {
	if err := ValidateTimeRange(timeRangeDays); err != nil {
		return nil, err
	}
	start := time.Now()
	defer metrics.ObserveSince(metrics.AnalysisRegenerationDuration, start)

	today := e.Today()
	log := logging.With().
		Int64("category_id", categoryID).
		Int("time_range_days", timeRangeDays).
		Str("date", helpers.FormatDate(today)).
		Logger()

	distribution, err := e.source.SalesDistribution(ctx, categoryID, helpers.AddDays(today, -timeRangeDays), today)
	if err != nil {
		log.Warn().Err(err).Msg("sales distribution unavailable, market size set to 0")
		distribution = nil
	}
	if distribution == nil {
		distribution = []models.SalesDataPoint{}
	}

	monthlyGrowth := decimal.Zero.Round(scale)
	if timeRangeDays >= monthlyGrowthMinDays {
		monthlyGrowth = e.windowGrowth(ctx, categoryID, today, growthWindowDays)
	}

	competition, degraded := CompetitionScore(
		e.floatStat(ctx, "avg_bsr_rank", categoryID, e.source.AverageBsrRank),
		e.floatStat(ctx, "avg_review_count", categoryID, e.source.AverageReviewCount),
		e.productCount(ctx, categoryID),
	)
	if degraded {
		metrics.AnalysisDegradedScores.WithLabelValues("competition").Inc()
		log.Warn().Msg("competition statistics unavailable, using neutral score")
	}

	barrier, degraded := EntryBarrier(
		e.floatStat(ctx, "avg_competition_score", categoryID, e.source.AverageCompetitionScore),
		e.floatStat(ctx, "avg_rating", categoryID, e.source.AverageRating),
	)
	if degraded {
		metrics.AnalysisDegradedScores.WithLabelValues("entry_barrier").Inc()
		log.Warn().Msg("entry barrier statistics unavailable, using neutral score")
	}

	analysis := &models.MarketAnalysis{
		CategoryID:        categoryID,
		TimeRangeDays:     timeRangeDays,
		AnalysisDate:      today,
		MarketSize:        MarketSize(distribution),
		MonthlyGrowthRate: monthlyGrowth,
		CompetitionScore:  competition,
		EntryBarrier:      barrier,
		PotentialScore:    PotentialScore(monthlyGrowth, competition, barrier),
		SalesDistribution: distribution,
		WeekOverWeek:      e.windowGrowth(ctx, categoryID, today, weekWindowDays),
		MonthOverMonth:    e.windowGrowth(ctx, categoryID, today, growthWindowDays),
	}

	if err := e.store.Save(ctx, analysis); err != nil {
		return nil, fmt.Errorf("save market analysis for category %d: %w", categoryID, err)
	}

	log.Info().
		Int64("market_size", analysis.MarketSize).
		Str("potential_score", analysis.PotentialScore.StringFixed(scale)).
		Msg("market analysis generated")

	return analysis, nil
}

// windowGrowth compares the product count delta of [today-w, today] with that
// of [today-2w, today-w].
func (e *Engine) windowGrowth(ctx context.Context, categoryID int64, today time.Time, window int) decimal.Decimal {
	mid := helpers.AddDays(today, -window)
	recent := e.countChange(ctx, categoryID, mid, today)
	previous := e.countChange(ctx, categoryID, helpers.AddDays(today, -2*window), mid)
	if previous == nil {
		metrics.AnalysisDegradedScores.WithLabelValues("growth").Inc()
	}
	return GrowthRate(recent, previous)
}

func (e *Engine) countChange(ctx context.Context, categoryID int64, start, end time.Time) *int64 {
	v, err := e.source.ProductCountChange(ctx, categoryID, start, end)
	if err != nil {
		logging.Warn().Err(err).
			Int64("category_id", categoryID).
			Str("start", helpers.FormatDate(start)).
			Str("end", helpers.FormatDate(end)).
			Msg("product count change unavailable")
		return nil
	}
	return v
}

func (e *Engine) productCount(ctx context.Context, categoryID int64) *int64 {
	n, err := e.source.CountProductsByCategory(ctx, categoryID)
	if err != nil {
		logging.Warn().Err(err).Int64("category_id", categoryID).Msg("product count unavailable")
		return nil
	}
	return &n
}

func (e *Engine) floatStat(ctx context.Context, name string, categoryID int64,
	fetch func(context.Context, int64) (*float64, error)) *float64 {
	v, err := fetch(ctx, categoryID)
	if err != nil {
		logging.Warn().Err(err).Int64("category_id", categoryID).Str("statistic", name).Msg("statistic unavailable")
		return nil
	}
	return v
}
