package analytics

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flashsell-engine/database"
	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
)

// Repository handles database operations for market analyses
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new analytics repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ============================================================================
// Market Analyses
// ============================================================================

// Save inserts the analysis or overwrites the row with the same
// (category_id, time_range_days, analysis_date) key.
func (r *Repository) Save(ctx context.Context, analysis *models.MarketAnalysis) error {
	if analysis == nil {
		return database.NewValidationError("analysis", "must not be nil")
	}
	analysis.AnalysisDate = helpers.Day(analysis.AnalysisDate)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}, {Name: "time_range_days"}, {Name: "analysis_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"market_size",
			"monthly_growth_rate",
			"competition_score",
			"entry_barrier",
			"potential_score",
			"sales_distribution",
			"week_over_week",
			"month_over_month",
			"updated_at",
		}),
	}).Create(analysis).Error
	if err != nil {
		return database.WrapDBError("SaveMarketAnalysis", err)
	}
	return nil
}

// FindLatest retrieves the most recent analysis for a category and time range
func (r *Repository) FindLatest(ctx context.Context, categoryID int64, timeRangeDays int) (*models.MarketAnalysis, error) {
	var analysis models.MarketAnalysis
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND time_range_days = ?", categoryID, timeRangeDays).
		Order("analysis_date DESC").
		First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, database.WrapDBError("FindLatestMarketAnalysis", err)
	}
	return &analysis, nil
}
