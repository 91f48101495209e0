package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
	"flashsell-engine/logging"
)

const (
	// DefaultTopN is the number of products kept per category per day
	DefaultTopN = 20
	// HomepageSize is the number of recommendations pooled across categories
	HomepageSize = 4
)

// HotCache is an optional look-aside cache of published category rankings
type HotCache interface {
	GetRanking(ctx context.Context, date time.Time, categoryID int64) ([]models.HotProductScore, bool)
	// SetRanking overwrites the entry; used when a ranking is published
	SetRanking(ctx context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error
	// FillRanking writes the entry only when none exists; used on read misses
	FillRanking(ctx context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error
	Invalidate(ctx context.Context, date time.Time, categoryID int64) error
}

// Engine builds and serves per-category daily hot product rankings
type Engine struct {
	source  CandidateSource
	history *History
	cache   HotCache
	topN    int
}

// NewEngine creates a ranking engine. topN <= 0 selects DefaultTopN.
func NewEngine(source CandidateSource, history *History, topN int) *Engine {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Engine{source: source, history: history, topN: topN}
}

// WithCache sets the look-aside cache used by GetTopN
func (e *Engine) WithCache(c HotCache) *Engine {
	e.cache = c
	return e
}

// History returns the history the engine publishes into
func (e *Engine) History() *History {
	return e.history
}

// ComputeDailyRanking ranks the qualifying candidates by descending hot score.
// Equal scores keep their input order. Ranks run 1..N without gaps and at
// most topN entries are returned.
func (e *Engine) ComputeDailyRanking(categoryID int64, date time.Time, candidates []Candidate) []models.HotProductScore {
	qualified := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Qualifies() {
			qualified = append(qualified, c)
		}
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].HotScore.GreaterThan(qualified[j].HotScore)
	})

	if len(qualified) > e.topN {
		qualified = qualified[:e.topN]
	}

	day := helpers.Day(date)
	rows := make([]models.HotProductScore, len(qualified))
	for i, c := range qualified {
		rows[i] = models.HotProductScore{
			ProductID:      c.ProductID,
			CategoryID:     categoryID,
			HotScore:       c.HotScore.Round(2),
			RankInCategory: i + 1,
			RecommendDate:  day,
			DaysOnList:     1,
		}
	}
	return rows
}

// RankCategory reads the category's candidates, ranks them and replaces the
// (date, category) partition. It returns the number of ranked products.
func (e *Engine) RankCategory(ctx context.Context, categoryID int64, date time.Time) (int, error) {
	candidates, err := e.source.HotCandidates(ctx, categoryID, date)
	if err != nil {
		return 0, fmt.Errorf("load hot candidates for category %d: %w", categoryID, err)
	}

	rows := e.ComputeDailyRanking(categoryID, date, candidates)
	if err := e.Publish(ctx, categoryID, date, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Publish annotates rows with their movement against the retained history and
// replaces the (date, category) partition with them.
func (e *Engine) Publish(ctx context.Context, categoryID int64, date time.Time, rows []models.HotProductScore) error {
	prior, err := e.history.CategoryWindow(ctx, categoryID, helpers.AddDays(date, -(RetentionDays-1)), helpers.AddDays(date, -1))
	if err != nil {
		return fmt.Errorf("load ranking history for category %d: %w", categoryID, err)
	}
	annotate(rows, prior, helpers.AddDays(date, -1))

	if err := e.history.SaveRanking(ctx, date, categoryID, rows); err != nil {
		return fmt.Errorf("save ranking for category %d: %w", categoryID, err)
	}

	e.refreshCache(ctx, date, categoryID)

	logStats(categoryID, date, rows)
	return nil
}

// refreshCache replaces the cached partition with the stored one. When that
// fails the entry is dropped so readers fall back to the store.
func (e *Engine) refreshCache(ctx context.Context, date time.Time, categoryID int64) {
	if e.cache == nil {
		return
	}

	saved, err := e.history.Ranking(ctx, date, categoryID)
	if err == nil {
		err = e.cache.SetRanking(ctx, date, categoryID, saved)
	}
	if err == nil {
		return
	}

	logging.Warn().Err(err).Int64("category_id", categoryID).Msg("failed to refresh hot product cache")
	if err := e.cache.Invalidate(ctx, date, categoryID); err != nil {
		logging.Warn().Err(err).Int64("category_id", categoryID).Msg("failed to invalidate hot product cache")
	}
}

// annotate sets DaysOnList and RankChange from earlier partitions of the category
func annotate(rows, prior []models.HotProductScore, yesterday time.Time) {
	days := make(map[int64]int, len(prior))
	yesterdayRank := make(map[int64]int)
	y := helpers.FormatDate(yesterday)

	for _, p := range prior {
		days[p.ProductID]++
		if helpers.FormatDate(p.RecommendDate) == y {
			yesterdayRank[p.ProductID] = p.RankInCategory
		}
	}

	for i := range rows {
		rows[i].DaysOnList = days[rows[i].ProductID] + 1
		if prev, ok := yesterdayRank[rows[i].ProductID]; ok {
			rows[i].RankChange = prev - rows[i].RankInCategory
		} else {
			rows[i].RankChange = 0
		}
	}
}

// GetTopN returns the first n entries of the category ranking by ascending
// rank. Fewer than n are returned when fewer were ranked. Days outside the
// retention window are empty even while a cached copy survives.
func (e *Engine) GetTopN(ctx context.Context, date time.Time, categoryID int64, n int) ([]models.HotProductScore, error) {
	if n <= 0 || e.history.expired(date) {
		return []models.HotProductScore{}, nil
	}

	rows, ok := e.cachedRanking(ctx, date, categoryID)
	if !ok {
		var err error
		rows, err = e.history.Ranking(ctx, date, categoryID)
		if err != nil {
			return nil, fmt.Errorf("load ranking for category %d: %w", categoryID, err)
		}
		if e.cache != nil {
			if err := e.cache.FillRanking(ctx, date, categoryID, rows); err != nil {
				logging.Warn().Err(err).Int64("category_id", categoryID).Msg("failed to cache hot products")
			}
		}
	}

	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (e *Engine) cachedRanking(ctx context.Context, date time.Time, categoryID int64) ([]models.HotProductScore, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.GetRanking(ctx, date, categoryID)
}

// GetHomepageRecommendations returns up to HomepageSize products with the
// highest hot scores across all categories. Ties fall back to category,
// rank and product ID so the result is deterministic.
func (e *Engine) GetHomepageRecommendations(ctx context.Context, date time.Time) ([]models.HotProductScore, error) {
	rows, err := e.history.ByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load rankings for %s: %w", helpers.FormatDate(date), err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := a.HotScore.Cmp(b.HotScore); c != 0 {
			return c > 0
		}
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		if a.RankInCategory != b.RankInCategory {
			return a.RankInCategory < b.RankInCategory
		}
		return a.ProductID < b.ProductID
	})

	if len(rows) > HomepageSize {
		rows = rows[:HomepageSize]
	}
	return rows, nil
}

// Stats summarises one category ranking
type Stats struct {
	Count         int
	Average       decimal.Decimal
	Max           decimal.Decimal
	Min           decimal.Decimal
	HighPotential int
}

// Summarize computes ranking statistics; the zero Stats is returned for no rows
func Summarize(rows []models.HotProductScore) Stats {
	if len(rows) == 0 {
		return Stats{}
	}

	s := Stats{Count: len(rows), Max: rows[0].HotScore, Min: rows[0].HotScore}
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.HotScore)
		if r.HotScore.GreaterThan(s.Max) {
			s.Max = r.HotScore
		}
		if r.HotScore.LessThan(s.Min) {
			s.Min = r.HotScore
		}
		if r.IsHighPotential() {
			s.HighPotential++
		}
	}
	s.Average = sum.DivRound(decimal.NewFromInt(int64(len(rows))), 2)
	return s
}

func logStats(categoryID int64, date time.Time, rows []models.HotProductScore) {
	s := Summarize(rows)
	logging.Info().
		Int64("category_id", categoryID).
		Str("date", helpers.FormatDate(date)).
		Int("count", s.Count).
		Str("avg_score", s.Average.StringFixed(2)).
		Str("max_score", s.Max.StringFixed(2)).
		Str("min_score", s.Min.StringFixed(2)).
		Int("high_potential", s.HighPotential).
		Msg("hot product ranking published")
}
