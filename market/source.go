package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "flashsell-engine/database/models_pkg"
)

// TimeRanges are the only analysis windows (in days) that may be requested
var TimeRanges = []int{30, 90, 365}

// ErrInvalidTimeRange is returned for a time range outside TimeRanges
var ErrInvalidTimeRange = errors.New("time range must be 30, 90 or 365 days")

// ValidateTimeRange returns a wrapped ErrInvalidTimeRange for unsupported windows
func ValidateTimeRange(days int) error {
	for _, d := range TimeRanges {
		if d == days {
			return nil
		}
	}
	return fmt.Errorf("%w: got %d", ErrInvalidTimeRange, days)
}

// DataSource supplies category-level aggregate statistics.
// A nil pointer with a nil error means the statistic is unavailable.
type DataSource interface {
	CountProductsByCategory(ctx context.Context, categoryID int64) (int64, error)
	AverageBsrRank(ctx context.Context, categoryID int64) (*float64, error)
	AverageReviewCount(ctx context.Context, categoryID int64) (*float64, error)
	AverageRating(ctx context.Context, categoryID int64) (*float64, error)
	AverageCompetitionScore(ctx context.Context, categoryID int64) (*float64, error)
	// ProductCountChange is the net change in listed products over [start, end]
	ProductCountChange(ctx context.Context, categoryID int64, start, end time.Time) (*int64, error)
	SalesDistribution(ctx context.Context, categoryID int64, start, end time.Time) ([]models.SalesDataPoint, error)
}

// Store persists analyses keyed by (category, time range, analysis date)
type Store interface {
	// FindLatest returns the most recent analysis for the pair, or nil, nil
	FindLatest(ctx context.Context, categoryID int64, timeRangeDays int) (*models.MarketAnalysis, error)
	// Save inserts the analysis or replaces the row with the same key
	Save(ctx context.Context, analysis *models.MarketAnalysis) error
}

// Lookaside is an optional fast cache in front of Store
type Lookaside interface {
	GetAnalysis(ctx context.Context, categoryID int64, timeRangeDays int, day time.Time) (*models.MarketAnalysis, bool)
	SetAnalysis(ctx context.Context, analysis *models.MarketAnalysis) error
}
