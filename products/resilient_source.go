package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/logging"
	"flashsell-engine/metrics"
	"flashsell-engine/ranking"
)

// ErrRateLimited is returned when the caller's context ends while waiting for a token
var ErrRateLimited = errors.New("product source rate limit wait aborted")

// ResilientConfig configures ResilientSource
type ResilientConfig struct {
	// QueryTimeout bounds every upstream call
	QueryTimeout time.Duration

	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold uint32

	// OpenTimeout is the duration in open state before transitioning to half-open
	OpenTimeout time.Duration

	// RatePerSecond and Burst configure the shared token bucket; RatePerSecond <= 0 disables it
	RatePerSecond float64
	Burst         int
}

// DefaultResilientConfig returns production defaults
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		QueryTimeout:     10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		RatePerSecond:    50,
		Burst:            10,
	}
}

// ResilientSource guards a Source with a per-call timeout, a rate limiter and a
// circuit breaker. While the breaker is open calls fail fast with
// gobreaker.ErrOpenState, which the engines treat as an unavailable statistic.
type ResilientSource struct {
	inner   Source
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
}

// NewResilientSource wraps inner
func NewResilientSource(inner Source, cfg ResilientConfig) *ResilientSource {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	r := &ResilientSource{
		inner:   inner,
		timeout: cfg.QueryTimeout,
		limiter: rate.NewLimiter(limit, burst),
	}

	r.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "product-source",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A caller giving up is not an upstream failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SourceBreakerState.Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("product source circuit breaker state changed")
		},
	})
	return r
}

// State returns the current breaker state
func (r *ResilientSource) State() gobreaker.State {
	return r.breaker.State()
}

func call[T any](ctx context.Context, r *ResilientSource, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := r.limiter.Wait(ctx); err != nil {
		metrics.SourceRequests.WithLabelValues(op, "rejected").Inc()
		return zero, fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	v, err := r.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.SourceRequests.WithLabelValues(op, outcome).Inc()
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SourceRequests.WithLabelValues(op, "ok").Inc()
	return v.(T), nil
}

func (r *ResilientSource) CountProductsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	return call(ctx, r, "count_products", func(ctx context.Context) (int64, error) {
		return r.inner.CountProductsByCategory(ctx, categoryID)
	})
}

func (r *ResilientSource) AverageBsrRank(ctx context.Context, categoryID int64) (*float64, error) {
	return call(ctx, r, "avg_bsr_rank", func(ctx context.Context) (*float64, error) {
		return r.inner.AverageBsrRank(ctx, categoryID)
	})
}

func (r *ResilientSource) AverageReviewCount(ctx context.Context, categoryID int64) (*float64, error) {
	return call(ctx, r, "avg_review_count", func(ctx context.Context) (*float64, error) {
		return r.inner.AverageReviewCount(ctx, categoryID)
	})
}

func (r *ResilientSource) AverageRating(ctx context.Context, categoryID int64) (*float64, error) {
	return call(ctx, r, "avg_rating", func(ctx context.Context) (*float64, error) {
		return r.inner.AverageRating(ctx, categoryID)
	})
}

func (r *ResilientSource) AverageCompetitionScore(ctx context.Context, categoryID int64) (*float64, error) {
	return call(ctx, r, "avg_competition_score", func(ctx context.Context) (*float64, error) {
		return r.inner.AverageCompetitionScore(ctx, categoryID)
	})
}

func (r *ResilientSource) ProductCountChange(ctx context.Context, categoryID int64, start, end time.Time) (*int64, error) {
	return call(ctx, r, "product_count_change", func(ctx context.Context) (*int64, error) {
		return r.inner.ProductCountChange(ctx, categoryID, start, end)
	})
}

func (r *ResilientSource) SalesDistribution(ctx context.Context, categoryID int64, start, end time.Time) ([]models.SalesDataPoint, error) {
	return call(ctx, r, "sales_distribution", func(ctx context.Context) ([]models.SalesDataPoint, error) {
		return r.inner.SalesDistribution(ctx, categoryID, start, end)
	})
}

func (r *ResilientSource) HotCandidates(ctx context.Context, categoryID int64, date time.Time) ([]ranking.Candidate, error) {
	return call(ctx, r, "hot_candidates", func(ctx context.Context) ([]ranking.Candidate, error) {
		return r.inner.HotCandidates(ctx, categoryID, date)
	})
}
