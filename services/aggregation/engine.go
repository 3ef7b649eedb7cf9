package aggregation

import (
	"context"
	"fmt"

	"venuedir/models"

	"go.uber.org/zap"
)

// ReviewLister lists the current reviews of a merchant.
type ReviewLister interface {
	List(ctx context.Context, merchantID string) ([]models.Review, error)
}

// AggregateWriter persists a merchant's rating summary.
type AggregateWriter interface {
	UpdateAggregate(ctx context.Context, merchantID string, agg models.Aggregate) error
}

// Compute returns the mean rating and count of reviews. No reviews yields
// the zero Aggregate.
func Compute(reviews []models.Review) models.Aggregate {
	if len(reviews) == 0 {
		return models.Aggregate{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return models.Aggregate{
		AverageRating: float64(sum) / float64(len(reviews)),
		ReviewCount:   len(reviews),
	}
}

// Engine recomputes a merchant's aggregate from the full set of its reviews
// and writes it back. Recompute is not transactional with the review write
// that triggered it; a concurrent mutation can leave a stale aggregate until
// the next recompute.
type Engine struct {
	reviews   ReviewLister
	merchants AggregateWriter
	logger    *zap.Logger
}

func NewEngine(reviews ReviewLister, merchants AggregateWriter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{reviews: reviews, merchants: merchants, logger: logger}
}

// Recompute lists, computes and writes. Any failure is returned as an *AggregationError.
func (e *Engine) Recompute(ctx context.Context, merchantID string) (models.Aggregate, error) {
	reviews, err := e.reviews.List(ctx, merchantID)
	if err != nil {
		return models.Aggregate{}, &AggregationError{MerchantID: merchantID, Err: fmt.Errorf("list reviews: %w", err)}
	}
	agg := Compute(reviews)
	if err := e.merchants.UpdateAggregate(ctx, merchantID, agg); err != nil {
		return models.Aggregate{}, &AggregationError{MerchantID: merchantID, Err: fmt.Errorf("write aggregate: %w", err)}
	}
	e.logger.Debug("Aggregate recomputed",
		zap.String("merchantId", merchantID),
		zap.Float64("averageRating", agg.AverageRating),
		zap.Int("reviewCount", agg.ReviewCount))
	return agg, nil
}
