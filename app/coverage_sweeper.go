package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"flashsell-engine/catalog"
	"flashsell-engine/config"
	"flashsell-engine/database"
	"flashsell-engine/helpers"
	"flashsell-engine/logging"
	"flashsell-engine/metrics"
	"flashsell-engine/notifications"
)

// CategoryRanker builds and stores one category's daily ranking
type CategoryRanker interface {
	RankCategory(ctx context.Context, categoryID int64, date time.Time) (int, error)
}

// HistoryPurger drops rankings older than the retention floor
type HistoryPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// SweepPublisher announces a finished sweep to downstream consumers
type SweepPublisher interface {
	PublishSweep(ctx context.Context, summary interface{}) error
}

// Alerter delivers sweep failure alerts
type Alerter interface {
	SendSweepAlert(ctx context.Context, alert notifications.SweepAlert) error
}

// CategoryFailure records why one category did not get a ranking
type CategoryFailure struct {
	CategoryID int64  `json:"category_id"`
	Error      string `json:"error"`
}

// SweepReport is the outcome of one daily sweep
type SweepReport struct {
	Date               string            `json:"date"`
	TotalCategories    int               `json:"total_categories"`
	CategoriesWithData int               `json:"categories_with_data"`
	EmptyCategories    []int64           `json:"empty_categories"`
	Failures           []CategoryFailure `json:"failures"`
	RankedProducts     int               `json:"ranked_products"`
	PurgedRows         int64             `json:"purged_rows"`
	Alert              bool              `json:"alert"`
	Duration           time.Duration     `json:"duration"`
}

// Complete reports whether every catalog category received a ranking
func (r *SweepReport) Complete() bool {
	return r.TotalCategories == catalog.CategoryCount && r.CategoriesWithData == r.TotalCategories
}

// FailedIDs returns the IDs of the failed categories in ascending order
func (r *SweepReport) FailedIDs() []int64 {
	ids := make([]int64, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.CategoryID
	}
	return ids
}

type categoryResult struct {
	id    int64
	count int
	err   error
}

// CoverageSweeper ranks every catalog category once a day
type CoverageSweeper struct {
	ranker    CategoryRanker
	purger    HistoryPurger
	publisher SweepPublisher
	alerter   Alerter
	cfg       config.SchedulerConfig
	loc       *time.Location
	now       func() time.Time

	done     chan bool
	stopOnce sync.Once
}

// NewCoverageSweeper creates a sweeper. purger and publisher may be nil.
func NewCoverageSweeper(ranker CategoryRanker, purger HistoryPurger, cfg config.SchedulerConfig, loc *time.Location) *CoverageSweeper {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.AlertFailureRatio <= 0 {
		cfg.AlertFailureRatio = 0.5
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CoverageSweeper{
		ranker: ranker,
		purger: purger,
		cfg:    cfg,
		loc:    loc,
		now:    time.Now,
		done:   make(chan bool),
	}
}

// WithPublisher sets where finished sweep reports are announced
func (s *CoverageSweeper) WithPublisher(p SweepPublisher) *CoverageSweeper {
	s.publisher = p
	return s
}

// WithAlerter sets where failure alerts are delivered
func (s *CoverageSweeper) WithAlerter(a Alerter) *CoverageSweeper {
	s.alerter = a
	return s
}

// WithClock overrides the clock used by the daily loop
func (s *CoverageSweeper) WithClock(now func() time.Time) *CoverageSweeper {
	s.now = now
	return s
}

// Start runs the daily loop until Stop is called or ctx ends
func (s *CoverageSweeper) Start(ctx context.Context) {
	logging.Info().
		Int("hour", s.cfg.RunHour).
		Int("minute", s.cfg.RunMinute).
		Str("timezone", s.loc.String()).
		Int("workers", s.cfg.Workers).
		Msg("hot product coverage sweeper started")

	if s.cfg.RunOnStart {
		s.runScheduled(ctx)
	}

	for {
		wait := s.untilNextRun()
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			s.runScheduled(ctx)
		case <-s.done:
			timer.Stop()
			logging.Info().Msg("hot product coverage sweeper stopped")
			return
		case <-ctx.Done():
			timer.Stop()
			logging.Info().Msg("hot product coverage sweeper stopped")
			return
		}
	}
}

// Stop stops the daily loop; it is safe to call more than once
func (s *CoverageSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *CoverageSweeper) runScheduled(ctx context.Context) {
	if _, err := s.RunDailySweep(ctx, s.now().In(s.loc)); err != nil {
		logging.Error().Err(err).Msg("hot product sweep aborted")
	}
}

// untilNextRun returns the delay until the next RunHour:RunMinute in the sweeper's location
func (s *CoverageSweeper) untilNextRun() time.Duration {
	now := s.now().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.RunHour, s.cfg.RunMinute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// RunDailySweep ranks all catalog categories for date. A failing or panicking
// category never stops the others. The error is non-nil only when ctx ended
// before the sweep finished; the partial report is still returned.
func (s *CoverageSweeper) RunDailySweep(ctx context.Context, date time.Time) (*SweepReport, error) {
	start := time.Now()
	ids := catalog.IDs()
	day := helpers.FormatDate(date)

	logging.Info().Str("date", day).Int("categories", len(ids)).Msg("hot product sweep started")

	results := make([]categoryResult, len(ids))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for i, id := range ids {
		g.Go(func() error {
			results[i] = s.rankOne(ctx, id, date)
			return nil
		})
	}
	_ = g.Wait()

	report := &SweepReport{
		Date:            day,
		TotalCategories: len(ids),
		EmptyCategories: []int64{},
		Failures:        []CategoryFailure{},
	}
	for _, r := range results {
		if r.err != nil {
			report.Failures = append(report.Failures, CategoryFailure{CategoryID: r.id, Error: r.err.Error()})
			continue
		}
		report.CategoriesWithData++
		report.RankedProducts += r.count
		if r.count == 0 {
			report.EmptyCategories = append(report.EmptyCategories, r.id)
		}
	}
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].CategoryID < report.Failures[j].CategoryID
	})

	failureRatio := float64(len(report.Failures)) / float64(report.TotalCategories)
	report.Alert = failureRatio > s.cfg.AlertFailureRatio

	if s.purger != nil && ctx.Err() == nil {
		purged, err := s.purger.Purge(ctx)
		if err != nil {
			logging.Error().Err(err).Str("date", day).Msg("hot product retention purge failed")
		}
		report.PurgedRows = purged
	}

	report.Duration = time.Since(start)
	s.record(report)

	if report.Alert && s.alerter != nil && ctx.Err() == nil {
		if err := s.alerter.SendSweepAlert(ctx, notifications.SweepAlert{
			Date:             report.Date,
			Succeeded:        report.CategoriesWithData,
			Failed:           len(report.Failures),
			Total:            report.TotalCategories,
			FailedCategories: report.FailedIDs(),
		}); err != nil {
			logging.Error().Err(err).Str("date", day).Msg("failed to deliver sweep alert")
		}
	}

	if s.publisher != nil && ctx.Err() == nil {
		if err := s.publisher.PublishSweep(ctx, report); err != nil {
			logging.Warn().Err(err).Str("date", day).Msg("failed to publish sweep report")
		}
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("sweep for %s interrupted: %w", day, err)
	}
	return report, nil
}

// RunCategory ranks a single category, for compensating a failed sweep entry
func (s *CoverageSweeper) RunCategory(ctx context.Context, categoryID int64, date time.Time) (int, error) {
	if !catalog.Contains(categoryID) {
		return 0, database.NewNotFoundErrorWithID("category", categoryID)
	}

	logging.Info().Int64("category_id", categoryID).Str("date", helpers.FormatDate(date)).Msg("manual category ranking")

	r := s.rankOne(ctx, categoryID, date)
	return r.count, r.err
}

func (s *CoverageSweeper) rankOne(ctx context.Context, categoryID int64, date time.Time) (res categoryResult) {
	res.id = categoryID

	defer func() {
		if p := recover(); p != nil {
			res.count = 0
			res.err = fmt.Errorf("panic ranking category %d: %v", categoryID, p)
		}
		if res.err != nil {
			metrics.SweepCategoryFailures.Inc()
			logging.Error().
				Err(res.err).
				Int64("category_id", categoryID).
				Str("date", helpers.FormatDate(date)).
				Msg("category ranking failed")
		}
	}()

	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}
	res.count, res.err = s.ranker.RankCategory(ctx, categoryID, date)
	return res
}

func (s *CoverageSweeper) record(report *SweepReport) {
	metrics.SweepCoverage.Set(float64(report.CategoriesWithData))
	metrics.SweepDuration.Observe(report.Duration.Seconds())

	event := logging.Info()
	if !report.Complete() {
		metrics.SweepIncomplete.Inc()
		event = logging.Warn().Ints64("failed_categories", report.FailedIDs())
	}
	event.
		Str("date", report.Date).
		Int("categories_with_data", report.CategoriesWithData).
		Int("total_categories", report.TotalCategories).
		Int("empty_categories", len(report.EmptyCategories)).
		Int("ranked_products", report.RankedProducts).
		Int64("purged_rows", report.PurgedRows).
		Dur("duration", report.Duration).
		Msg("hot product sweep finished")

	if report.Alert {
		logging.Error().
			Str("date", report.Date).
			Int("failed", len(report.Failures)).
			Int("succeeded", report.CategoriesWithData).
			Msg("hot product sweep failure rate exceeded alert threshold")
	}
}
