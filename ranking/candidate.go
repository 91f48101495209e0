package ranking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MinCandidateRating is the lowest average rating a product may have to be ranked
const MinCandidateRating = 3.0

// Candidate is a product eligible for the daily hot ranking of its category
type Candidate struct {
	ProductID   int64           `json:"product_id"`
	HotScore    decimal.Decimal `json:"hot_score"`
	BsrRank     int64           `json:"bsr_rank"`
	ReviewCount int64           `json:"review_count"`
	Rating      float64         `json:"rating"`
}

// Qualifies reports whether the candidate has enough marketplace signal to rank
func (c Candidate) Qualifies() bool {
	return c.BsrRank > 0 && c.ReviewCount > 0 && c.Rating >= MinCandidateRating
}

// CandidateSource supplies scored candidates for one category on one day
type CandidateSource interface {
	HotCandidates(ctx context.Context, categoryID int64, date time.Time) ([]Candidate, error)
}
