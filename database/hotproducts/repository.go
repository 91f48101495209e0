package hotproducts

import (
	"context"
	"time"

	"gorm.io/gorm"

	"flashsell-engine/database"
	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
)

// Repository handles database operations for daily hot product rankings
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new hot products repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceRanking deletes and rewrites the (date, category) partition in one
// transaction. Concurrent readers see either the old or the new ranking.
func (r *Repository) ReplaceRanking(ctx context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error {
	ctx, cancel := context.WithTimeout(ctx, database.BatchWriteTimeout)
	defer cancel()

	day := helpers.FormatDate(date)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recommend_date = ? AND category_id = ?", day, categoryID).
			Delete(&models.HotProductScore{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].ID = 0
			rows[i].CategoryID = categoryID
			rows[i].RecommendDate = helpers.Day(date)
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return database.WrapDBError("ReplaceHotProductRanking", err)
	}
	return nil
}

// FindByDateAndCategory returns one ranking ordered by ascending rank
func (r *Repository) FindByDateAndCategory(ctx context.Context, date time.Time, categoryID int64) ([]models.HotProductScore, error) {
	var rows []models.HotProductScore
	err := r.db.WithContext(ctx).
		Where("recommend_date = ? AND category_id = ?", helpers.FormatDate(date), categoryID).
		Order("rank_in_category ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("FindHotProductsByDateAndCategory", err)
	}
	return rows, nil
}

// FindByDate returns every category ranking of a day
func (r *Repository) FindByDate(ctx context.Context, date time.Time) ([]models.HotProductScore, error) {
	var rows []models.HotProductScore
	err := r.db.WithContext(ctx).
		Where("recommend_date = ?", helpers.FormatDate(date)).
		Order("category_id ASC, rank_in_category ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("FindHotProductsByDate", err)
	}
	return rows, nil
}

// FindByCategoryBetween returns a category's rows dated within [start, end]
func (r *Repository) FindByCategoryBetween(ctx context.Context, categoryID int64, start, end time.Time) ([]models.HotProductScore, error) {
	var rows []models.HotProductScore
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND recommend_date BETWEEN ? AND ?", categoryID, helpers.FormatDate(start), helpers.FormatDate(end)).
		Order("recommend_date ASC, rank_in_category ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("FindHotProductsByCategory", err)
	}
	return rows, nil
}

// FindProductHistory returns a product's rows dated within [start, end], newest first
func (r *Repository) FindProductHistory(ctx context.Context, productID int64, start, end time.Time) ([]models.HotProductScore, error) {
	var rows []models.HotProductScore
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND recommend_date BETWEEN ? AND ?", productID, helpers.FormatDate(start), helpers.FormatDate(end)).
		Order("recommend_date DESC, category_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("FindHotProductHistory", err)
	}
	return rows, nil
}

// DeleteBefore hard-deletes rows dated strictly before cutoff
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, database.PurgeTimeout)
	defer cancel()

	result := r.db.WithContext(ctx).
		Where("recommend_date < ?", helpers.FormatDate(cutoff)).
		Delete(&models.HotProductScore{})
	if result.Error != nil {
		return 0, database.WrapDBError("PurgeHotProducts", result.Error)
	}
	return result.RowsAffected, nil
}
