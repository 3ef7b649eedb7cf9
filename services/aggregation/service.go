package aggregation

import (
	"context"
	"errors"
	"fmt"

	"venuedir/models"
	"venuedir/services/review"

	"go.uber.org/zap"
)

// ReviewGateway is the session-bound review store the service writes through.
type ReviewGateway interface {
	Add(ctx context.Context, r models.Review) (*models.Review, error)
	Update(ctx context.Context, r models.Review) (*models.Review, error)
	Delete(ctx context.Context, id string) (*models.Review, error)
	Get(ctx context.Context, id string) (*models.Review, error)
	FindOne(ctx context.Context, userID, merchantID string) (*models.Review, error)
}

// ReviewGatewayFactory returns a review gateway acting for session.
type ReviewGatewayFactory func(session models.Session) ReviewGateway

// MerchantReader checks that a merchant exists.
type MerchantReader interface {
	MerchantByID(ctx context.Context, id string) (*models.Merchant, error)
}

// ErrMerchantNotFound is returned when reviewing a merchant that does not exist.
var ErrMerchantNotFound = errors.New("merchant not found")

// Result is the outcome of a successful review mutation. AggregateErr is set
// when the merchant's aggregate could not be refreshed afterwards.
type Result struct {
	Review       *models.Review    `json:"review,omitempty"`
	Aggregate    *models.Aggregate `json:"aggregate,omitempty"`
	AggregateErr error             `json:"-"`
}

// Stale reports whether the merchant's stored aggregate may be out of date.
func (r *Result) Stale() bool {
	return r.AggregateErr != nil
}

// Service performs review mutations and refreshes the affected merchant's
// aggregate after each one.
type Service struct {
	reviews   ReviewGatewayFactory
	merchants MerchantReader
	engine    *Engine
	queue     RetryQueue
	logger    *zap.Logger
	locks     stripedMutex
}

// NewService builds a Service. merchants and queue may be nil.
func NewService(reviews ReviewGatewayFactory, engine *Engine, merchants MerchantReader, queue RetryQueue, logger *zap.Logger) (*Service, error) {
	if reviews == nil || engine == nil {
		return nil, fmt.Errorf("review service initialization error: one or more dependencies are nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reviews: reviews, merchants: merchants, engine: engine, queue: queue, logger: logger}, nil
}

// Add stores a new review for the session's user. It fails with
// review.ErrDuplicateReview when the user already reviewed the merchant.
func (s *Service) Add(ctx context.Context, session models.Session, r models.Review) (*Result, error) {
	if err := s.checkMerchant(ctx, r.MerchantID); err != nil {
		return nil, err
	}
	author := r.UserID
	if !session.IsSystem() {
		author = session.UserID
	}
	if author == "" {
		return nil, review.ErrMissingUser
	}
	unlock := s.locks.lock(author + "|" + r.MerchantID)
	defer unlock()

	gw := s.reviews(session)
	existing, err := gw.FindOne(ctx, author, r.MerchantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, review.ErrDuplicateReview
	}
	added, err := gw.Add(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.afterMutation(ctx, added.MerchantID, added), nil
}

// Update replaces the rating and comment of an existing review.
func (s *Service) Update(ctx context.Context, session models.Session, r models.Review) (*Result, error) {
	updated, err := s.reviews(session).Update(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.afterMutation(ctx, updated.MerchantID, updated), nil
}

// Delete removes a review. A missing review yields review.ErrReviewNotFound
// and no recompute.
func (s *Service) Delete(ctx context.Context, session models.Session, reviewID string) (*Result, error) {
	deleted, err := s.reviews(session).Delete(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, review.ErrReviewNotFound
	}
	return s.afterMutation(ctx, deleted.MerchantID, deleted), nil
}

// Submit records the session user's rating of a merchant, updating their
// existing review when there is one. Submits for the same user and merchant
// run one at a time.
func (s *Service) Submit(ctx context.Context, session models.Session, merchantID string, rating int, comment *string) (*Result, error) {
	if session.IsSystem() {
		return nil, review.ErrMissingUser
	}
	if err := s.checkMerchant(ctx, merchantID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(session.UserID + "|" + merchantID)
	defer unlock()

	gw := s.reviews(session)
	existing, err := gw.FindOne(ctx, session.UserID, merchantID)
	if err != nil {
		return nil, err
	}

	var saved *models.Review
	if existing != nil {
		saved, err = gw.Update(ctx, models.Review{ID: existing.ID, MerchantID: merchantID, Rating: rating, Comment: comment})
	} else {
		saved, err = gw.Add(ctx, models.Review{MerchantID: merchantID, Rating: rating, Comment: comment})
	}
	if err != nil {
		return nil, err
	}
	return s.afterMutation(ctx, merchantID, saved), nil
}

// RefreshAggregate recomputes a merchant's aggregate on demand.
func (s *Service) RefreshAggregate(ctx context.Context, merchantID string) (models.Aggregate, error) {
	if err := s.checkMerchant(ctx, merchantID); err != nil {
		return models.Aggregate{}, err
	}
	return s.engine.Recompute(ctx, merchantID)
}

func (s *Service) afterMutation(ctx context.Context, merchantID string, r *models.Review) *Result {
	res := &Result{Review: r}
	agg, err := s.engine.Recompute(ctx, merchantID)
	if err == nil {
		res.Aggregate = &agg
		return res
	}

	res.AggregateErr = err
	s.logger.Warn("Aggregate left stale after review mutation",
		zap.String("merchantId", merchantID), zap.Error(err))
	if s.queue != nil {
		if qerr := s.queue.EnqueueRecompute(context.WithoutCancel(ctx), merchantID); qerr != nil {
			s.logger.Error("Failed to enqueue aggregate recompute",
				zap.String("merchantId", merchantID), zap.Error(qerr))
		}
	}
	return res
}

func (s *Service) checkMerchant(ctx context.Context, merchantID string) error {
	if merchantID == "" {
		return review.ErrMissingMerchant
	}
	if s.merchants == nil {
		return nil
	}
	m, err := s.merchants.MerchantByID(ctx, merchantID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrMerchantNotFound
	}
	return nil
}
