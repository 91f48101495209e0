package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
	"flashsell-engine/logging"
	"flashsell-engine/metrics"
)

// RetentionDays is the number of calendar days kept, today included
const RetentionDays = 7

// ErrOutsideRetention is returned when writing a ranking older than the retention floor
var ErrOutsideRetention = errors.New("ranking date is outside the retention window")

// History enforces the rolling retention window over a HistoryStore.
// Reads never surface rows older than the floor, even before a purge ran.
type History struct {
	store HistoryStore
	now   func() time.Time
}

// NewHistory creates a History over store
func NewHistory(store HistoryStore) *History {
	return &History{store: store, now: time.Now}
}

// WithClock overrides the clock used to determine "today"
func (h *History) WithClock(now func() time.Time) *History {
	h.now = now
	return h
}

// Floor returns the oldest retained day: today minus RetentionDays-1
func (h *History) Floor() time.Time {
	return helpers.AddDays(h.now(), -(RetentionDays - 1))
}

// Days are compared as YYYY-MM-DD so rows read back as UTC midnight line up with local days
func (h *History) expired(date time.Time) bool {
	return helpers.FormatDate(date) < helpers.FormatDate(h.Floor())
}

// SaveRanking replaces the (date, category) partition
func (h *History) SaveRanking(ctx context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error {
	if h.expired(date) {
		return fmt.Errorf("%w: %s", ErrOutsideRetention, helpers.FormatDate(date))
	}
	return h.store.ReplaceRanking(ctx, helpers.Day(date), categoryID, rows)
}

// Ranking returns the partition ordered by ascending rank
func (h *History) Ranking(ctx context.Context, date time.Time, categoryID int64) ([]models.HotProductScore, error) {
	if h.expired(date) {
		return []models.HotProductScore{}, nil
	}
	return h.store.FindByDateAndCategory(ctx, helpers.Day(date), categoryID)
}

// ByDate returns every category's ranking for the day
func (h *History) ByDate(ctx context.Context, date time.Time) ([]models.HotProductScore, error) {
	if h.expired(date) {
		return []models.HotProductScore{}, nil
	}
	return h.store.FindByDate(ctx, helpers.Day(date))
}

// CategoryWindow returns the category's retained rows between start and end inclusive
func (h *History) CategoryWindow(ctx context.Context, categoryID int64, start, end time.Time) ([]models.HotProductScore, error) {
	start = h.clamp(start)
	if helpers.FormatDate(end) < helpers.FormatDate(start) {
		return []models.HotProductScore{}, nil
	}
	return h.store.FindByCategoryBetween(ctx, categoryID, start, helpers.Day(end))
}

// ProductHistory returns the product's rows in [start, end], newest first.
// start is raised to the retention floor.
func (h *History) ProductHistory(ctx context.Context, productID int64, start, end time.Time) ([]models.HotProductScore, error) {
	start = h.clamp(start)
	if helpers.FormatDate(end) < helpers.FormatDate(start) {
		return []models.HotProductScore{}, nil
	}
	rows, err := h.store.FindProductHistory(ctx, productID, start, helpers.Day(end))
	if err != nil {
		return nil, fmt.Errorf("product %d history: %w", productID, err)
	}
	return rows, nil
}

// Purge hard-deletes every row older than the retention floor. Same-day
// partitions are never touched, so it may run alongside ranking writes.
func (h *History) Purge(ctx context.Context) (int64, error) {
	floor := h.Floor()
	deleted, err := h.store.DeleteBefore(ctx, floor)
	if err != nil {
		return 0, fmt.Errorf("purge hot products before %s: %w", helpers.FormatDate(floor), err)
	}
	metrics.HistoryPurgedRows.Add(float64(deleted))
	logging.Info().
		Str("floor", helpers.FormatDate(floor)).
		Int64("deleted", deleted).
		Msg("hot product history purged")
	return deleted, nil
}

func (h *History) clamp(start time.Time) time.Time {
	if h.expired(start) {
		return h.Floor()
	}
	return helpers.Day(start)
}
