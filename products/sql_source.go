// Package products reads category statistics and hot score candidates from the
// product snapshot tables maintained by the ingestion pipeline.
package products

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"flashsell-engine/database"
	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
	"flashsell-engine/market"
	"flashsell-engine/ranking"
)

// Source is everything the engines consume from upstream
type Source interface {
	market.DataSource
	ranking.CandidateSource
}

const (
	queryCountProducts = `SELECT COUNT(*) FROM products WHERE category_id = $1`

	queryAvgBsrRank     = `SELECT AVG(bsr_rank) FROM products WHERE category_id = $1 AND bsr_rank IS NOT NULL`
	queryAvgReviewCount = `SELECT AVG(review_count) FROM products WHERE category_id = $1 AND review_count IS NOT NULL`
	queryAvgRating      = `SELECT AVG(rating) FROM products WHERE category_id = $1 AND rating IS NOT NULL`
	queryAvgCompetition = `SELECT AVG(competition_score) FROM products WHERE category_id = $1 AND competition_score IS NOT NULL`

	// end is exclusive: callers pass the day after the last included day
	queryCountCreated = `SELECT COUNT(*) FROM products WHERE category_id = $1 AND created_at >= $2 AND created_at < $3`

	querySalesDistribution = `
		SELECT sales_date, COALESCE(SUM(sales_volume), 0)
		FROM product_daily_sales
		WHERE category_id = $1 AND sales_date BETWEEN $2 AND $3
		GROUP BY sales_date
		ORDER BY sales_date ASC`

	queryHotCandidates = `
		SELECT p.id, h.hot_score, COALESCE(p.bsr_rank, 0), COALESCE(p.review_count, 0), COALESCE(p.rating, 0)
		FROM product_hot_scores h
		JOIN products p ON p.id = h.product_id
		WHERE h.category_id = $1 AND h.score_date = $2
		ORDER BY h.hot_score DESC, p.id ASC
		LIMIT $3`
)

// SQLSource implements Source with plain SQL over lib/pq
type SQLSource struct {
	db *sql.DB
}

// NewSQLSource creates a source over an open connection
func NewSQLSource(db *database.DB) *SQLSource {
	return &SQLSource{db: db.GetConn()}
}

func (s *SQLSource) CountProductsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, queryCountProducts, categoryID).Scan(&n); err != nil {
		return 0, database.WrapDBError("CountProductsByCategory", err)
	}
	return n, nil
}

func (s *SQLSource) AverageBsrRank(ctx context.Context, categoryID int64) (*float64, error) {
	return s.average(ctx, "AverageBsrRank", queryAvgBsrRank, categoryID)
}

func (s *SQLSource) AverageReviewCount(ctx context.Context, categoryID int64) (*float64, error) {
	return s.average(ctx, "AverageReviewCount", queryAvgReviewCount, categoryID)
}

func (s *SQLSource) AverageRating(ctx context.Context, categoryID int64) (*float64, error) {
	return s.average(ctx, "AverageRating", queryAvgRating, categoryID)
}

func (s *SQLSource) AverageCompetitionScore(ctx context.Context, categoryID int64) (*float64, error) {
	return s.average(ctx, "AverageCompetitionScore", queryAvgCompetition, categoryID)
}

// average returns nil when the category has no non-null values
func (s *SQLSource) average(ctx context.Context, op, query string, categoryID int64) (*float64, error) {
	var v sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, categoryID).Scan(&v); err != nil {
		return nil, database.WrapDBError(op, err)
	}
	if !v.Valid {
		return nil, nil
	}
	return &v.Float64, nil
}

// ProductCountChange counts products first seen in the category on any day of [start, end]
func (s *SQLSource) ProductCountChange(ctx context.Context, categoryID int64, start, end time.Time) (*int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, queryCountCreated, categoryID, helpers.Day(start), helpers.AddDays(end, 1)).Scan(&n)
	if err != nil {
		return nil, database.WrapDBError("ProductCountChange", err)
	}
	return &n, nil
}

// SalesDistribution sums daily sales of the category over [start, end]
func (s *SQLSource) SalesDistribution(ctx context.Context, categoryID int64, start, end time.Time) ([]models.SalesDataPoint, error) {
	rows, err := s.db.QueryContext(ctx, querySalesDistribution, categoryID, helpers.FormatDate(start), helpers.FormatDate(end))
	if err != nil {
		return nil, database.WrapDBError("SalesDistribution", err)
	}
	defer rows.Close()

	var points []models.SalesDataPoint
	for rows.Next() {
		var p models.SalesDataPoint
		if err := rows.Scan(&p.Date, &p.SalesVolume); err != nil {
			return nil, database.WrapDBError("SalesDistribution", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapDBError("SalesDistribution", err)
	}
	return points, nil
}

// HotCandidates returns the scored products of the category for the day,
// highest score first, capped at database.MaxCandidates.
func (s *SQLSource) HotCandidates(ctx context.Context, categoryID int64, date time.Time) ([]ranking.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, queryHotCandidates, categoryID, helpers.FormatDate(date), database.MaxCandidates)
	if err != nil {
		return nil, database.WrapDBError("HotCandidates", err)
	}
	defer rows.Close()

	var out []ranking.Candidate
	for rows.Next() {
		var c ranking.Candidate
		if err := rows.Scan(&c.ProductID, &c.HotScore, &c.BsrRank, &c.ReviewCount, &c.Rating); err != nil {
			return nil, fmt.Errorf("scan hot candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapDBError("HotCandidates", err)
	}
	return out, nil
}
