package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesDataPoint is the aggregated sales volume of one category on one day.
// It is read-only input to market size estimation and is embedded into the
// analysis that consumed it.
type SalesDataPoint struct {
	Date        time.Time `json:"date"`
	SalesVolume int64     `json:"sales_volume"`
}

// MarketAnalysis is a composite market analysis of one category over a time window.
//
// Key Fields:
//   - CategoryID, TimeRangeDays, AnalysisDate: the unique key; at most one row per key
//   - MarketSize: extrapolated monthly sales volume (mean daily volume × 30)
//   - MonthlyGrowthRate, WeekOverWeek, MonthOverMonth: percentages, 2 decimals
//   - CompetitionScore, EntryBarrier, PotentialScore: scores in [0, 1], 2 decimals
//
// A same-day recomputation replaces the row instead of appending a new one.
type MarketAnalysis struct {
	ID                int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID        int64            `gorm:"not null;uniqueIndex:idx_market_analysis_key,priority:1" json:"category_id"`
	TimeRangeDays     int              `gorm:"not null;uniqueIndex:idx_market_analysis_key,priority:2" json:"time_range_days"`
	AnalysisDate      time.Time        `gorm:"type:date;not null;uniqueIndex:idx_market_analysis_key,priority:3" json:"analysis_date"`
	MarketSize        int64            `gorm:"not null" json:"market_size"`
	MonthlyGrowthRate decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"monthly_growth_rate"`
	CompetitionScore  decimal.Decimal  `gorm:"type:decimal(4,2);not null" json:"competition_score"`
	EntryBarrier      decimal.Decimal  `gorm:"type:decimal(4,2);not null" json:"entry_barrier"`
	PotentialScore    decimal.Decimal  `gorm:"type:decimal(4,2);not null" json:"potential_score"`
	SalesDistribution []SalesDataPoint `gorm:"serializer:json;type:jsonb" json:"sales_distribution"`
	WeekOverWeek      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"week_over_week"`
	MonthOverMonth    decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"month_over_month"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for MarketAnalysis
func (MarketAnalysis) TableName() string {
	return "market_analyses"
}

// HotProductScore is one ranked entry of a category's daily hot product list.
//
// Key Fields:
//   - RecommendDate, CategoryID: the partition written by one sweep of one category
//   - RankInCategory: 1..N, unique and contiguous within the partition
//   - HotScore: 0-100, 2 decimals; ranks are descending by HotScore
//   - DaysOnList: retained days (including RecommendDate) the product was listed in the category
//   - RankChange: previous day's rank minus this rank; 0 when not listed the previous day
//
// Rows older than the 7-day retention window are hard-deleted.
type HotProductScore struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID      int64           `gorm:"not null;index;uniqueIndex:idx_hot_products_product,priority:3" json:"product_id"`
	CategoryID     int64           `gorm:"not null;uniqueIndex:idx_hot_products_rank,priority:2;uniqueIndex:idx_hot_products_product,priority:2" json:"category_id"`
	HotScore       decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"hot_score"`
	RankInCategory int             `gorm:"not null;uniqueIndex:idx_hot_products_rank,priority:3" json:"rank_in_category"`
	RecommendDate  time.Time       `gorm:"type:date;not null;index;uniqueIndex:idx_hot_products_rank,priority:1;uniqueIndex:idx_hot_products_product,priority:1" json:"recommend_date"`
	DaysOnList     int             `gorm:"not null;default:1" json:"days_on_list"`
	RankChange     int             `gorm:"not null;default:0" json:"rank_change"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for HotProductScore
func (HotProductScore) TableName() string {
	return "hot_products"
}

// HighPotentialScore is the HotScore at or above which a product counts as high potential
var HighPotentialScore = decimal.NewFromInt(80)

// IsHighPotential reports whether the score is at or above HighPotentialScore
func (s HotProductScore) IsHighPotential() bool {
	return s.HotScore.GreaterThanOrEqual(HighPotentialScore)
}
