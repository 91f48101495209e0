package market

import (
	"github.com/shopspring/decimal"

	models "flashsell-engine/database/models_pkg"
)

// Every score and percentage is rounded half-up (away from zero) to this many places
const scale = 2

var (
	zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
	five    = decimal.NewFromInt(5)
	hundred = decimal.NewFromInt(100)

	// NeutralScore is used when an underlying statistic is unavailable
	NeutralScore = decimal.RequireFromString("0.50")

	weightBsr          = decimal.RequireFromString("0.4")
	weightReview       = decimal.RequireFromString("0.3")
	weightProductCount = decimal.RequireFromString("0.3")

	weightBarrierCompetition = decimal.RequireFromString("0.6")
	weightBarrierRating      = decimal.RequireFromString("0.4")

	weightPotentialGrowth      = decimal.RequireFromString("0.5")
	weightPotentialCompetition = decimal.RequireFromString("0.3")
	weightPotentialBarrier     = decimal.RequireFromString("0.2")

	step10 = decimal.RequireFromString("1.0")
	step08 = decimal.RequireFromString("0.8")
	step06 = decimal.RequireFromString("0.6")
	step04 = decimal.RequireFromString("0.4")
	step02 = decimal.RequireFromString("0.2")
)

// BsrScore buckets an average Best Sellers Rank. A lower rank means a more
// popular and therefore more competitive category.
func BsrScore(avgBsrRank float64) decimal.Decimal {
	switch {
	case avgBsrRank <= 1000:
		return step10
	case avgBsrRank <= 5000:
		return step08
	case avgBsrRank <= 10000:
		return step06
	case avgBsrRank <= 50000:
		return step04
	default:
		return step02
	}
}

// ReviewScore buckets an average review count; more reviews, more competition
func ReviewScore(avgReviewCount float64) decimal.Decimal {
	switch {
	case avgReviewCount >= 1000:
		return step10
	case avgReviewCount >= 500:
		return step08
	case avgReviewCount >= 100:
		return step06
	case avgReviewCount >= 50:
		return step04
	default:
		return step02
	}
}

// ProductCountScore buckets the number of products listed in a category
func ProductCountScore(productCount int64) decimal.Decimal {
	switch {
	case productCount >= 500:
		return step10
	case productCount >= 100:
		return step08
	case productCount >= 50:
		return step06
	case productCount >= 20:
		return step04
	default:
		return step02
	}
}

// CompetitionScore combines the three bucket scores (40/30/30). It returns
// NeutralScore and degraded=true when any statistic is missing.
func CompetitionScore(avgBsrRank, avgReviewCount *float64, productCount *int64) (score decimal.Decimal, degraded bool) {
	if avgBsrRank == nil || avgReviewCount == nil || productCount == nil {
		return NeutralScore, true
	}

	score = BsrScore(*avgBsrRank).Mul(weightBsr).
		Add(ReviewScore(*avgReviewCount).Mul(weightReview)).
		Add(ProductCountScore(*productCount).Mul(weightProductCount))

	return score.Round(scale), false
}

// EntryBarrier combines the average per-product competition statistic (60%)
// with the normalised average rating (40%).
func EntryBarrier(avgCompetitionScore, avgRating *float64) (score decimal.Decimal, degraded bool) {
	if avgCompetitionScore == nil || avgRating == nil {
		return NeutralScore, true
	}

	competition := decimal.NewFromFloat(*avgCompetitionScore)
	rating := decimal.NewFromFloat(*avgRating).Div(five)

	score = competition.Mul(weightBarrierCompetition).
		Add(rating.Mul(weightBarrierRating))

	return clampUnit(score.Round(scale)), false
}

// GrowthRate is the percentage change of a delta between two consecutive
// windows: (recent - previous) / |previous| × 100. The ratio is rounded to 2
// places before scaling. Returns 0 when previous is missing or zero.
func GrowthRate(recent, previous *int64) decimal.Decimal {
	if previous == nil || *previous == 0 {
		return zero.Round(scale)
	}
	var r int64
	if recent != nil {
		r = *recent
	}

	diff := decimal.NewFromInt(r - *previous)
	base := decimal.NewFromInt(*previous).Abs()

	return diff.DivRound(base, scale).Mul(hundred).Round(scale)
}

// PotentialScore rewards growth (50%), low competition (30%) and a low entry
// barrier (20%). Growth is capped at 1.0 from above only, so a shrinking
// market pulls the score down. The result is bounded to [0, 1].
func PotentialScore(monthlyGrowthRate, competitionScore, entryBarrier decimal.Decimal) decimal.Decimal {
	growth := monthlyGrowthRate.DivRound(hundred, scale)
	if growth.GreaterThan(one) {
		growth = one
	}

	score := growth.Mul(weightPotentialGrowth).
		Add(one.Sub(competitionScore).Mul(weightPotentialCompetition)).
		Add(one.Sub(entryBarrier).Mul(weightPotentialBarrier))

	return clampUnit(score.Round(scale))
}

// MarketSize extrapolates a monthly volume from the mean daily sales volume
func MarketSize(points []models.SalesDataPoint) int64 {
	if len(points) == 0 {
		return 0
	}

	var total int64
	for _, p := range points {
		total += p.SalesVolume
	}
	return (total / int64(len(points))) * 30
}

func clampUnit(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(zero) {
		return zero.Round(scale)
	}
	if d.GreaterThan(one) {
		return one.Round(scale)
	}
	return d
}
