package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"venuedir/database/repository/store"
	"venuedir/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gateway serves review records on behalf of one session. Writes by a user
// session are restricted to that user's reviews; the system session may
// touch any review.
type Gateway struct {
	reviews store.Collection
	session models.Session
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewGateway(reviews store.Collection, session models.Session, timeout time.Duration, logger *zap.Logger) (*Gateway, error) {
	if reviews == nil {
		return nil, fmt.Errorf("review gateway initialization error: reviews collection is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{reviews: reviews, session: session, timeout: timeout, logger: logger, now: time.Now}, nil
}

// WithSession returns a copy of the gateway acting for session.
func (g *Gateway) WithSession(session models.Session) *Gateway {
	cp := *g
	cp.session = session
	return &cp
}

func (g *Gateway) Session() models.Session {
	return g.session
}

// Add stores a new review. For a user session the author fields come from
// the session.
func (g *Gateway) Add(ctx context.Context, r models.Review) (*models.Review, error) {
	if err := validateRating(r.Rating); err != nil {
		return nil, err
	}
	if r.MerchantID == "" {
		return nil, ErrMissingMerchant
	}
	if !g.session.IsSystem() {
		r.UserID = g.session.UserID
		r.UserName = g.session.UserName
		r.UserAvatar = g.session.UserAvatar
	}
	if r.UserID == "" {
		return nil, ErrMissingUser
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := g.now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = &now

	cctx, cancel := g.withTimeout(ctx)
	defer cancel()
	if _, err := g.reviews.Create(cctx, r.ID, encodeReview(r)); err != nil {
		return nil, fmt.Errorf("failed to add review: %w", err)
	}
	g.logger.Info("Review added", zap.String("id", r.ID), zap.String("merchantId", r.MerchantID))
	return &r, nil
}

// Update replaces the rating and comment of an existing review and bumps
// updatedAt. Merchant, author and creation time are kept from the stored record.
func (g *Gateway) Update(ctx context.Context, r models.Review) (*models.Review, error) {
	if err := validateRating(r.Rating); err != nil {
		return nil, err
	}
	existing, err := g.Get(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrReviewNotFound
	}
	if err := g.authorize(existing); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Rating = r.Rating
	updated.Comment = r.Comment
	if !g.session.IsSystem() {
		updated.UserName = g.session.UserName
		updated.UserAvatar = g.session.UserAvatar
	}
	now := g.now().UTC()
	updated.UpdatedAt = &now

	cctx, cancel := g.withTimeout(ctx)
	defer cancel()
	err = g.reviews.Update(cctx, updated.ID, encodeReview(updated))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	g.logger.Info("Review updated", zap.String("id", updated.ID), zap.String("merchantId", updated.MerchantID))
	return &updated, nil
}

// Delete removes a review and returns it. Deleting a missing review returns nil.
func (g *Gateway) Delete(ctx context.Context, id string) (*models.Review, error) {
	existing, err := g.Get(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	if err := g.authorize(existing); err != nil {
		return nil, err
	}

	cctx, cancel := g.withTimeout(ctx)
	defer cancel()
	err = g.reviews.Delete(cctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete review: %w", err)
	}
	g.logger.Info("Review deleted", zap.String("id", id), zap.String("merchantId", existing.MerchantID))
	return existing, nil
}

// Get returns one review, or nil when it does not exist or cannot be decoded.
func (g *Gateway) Get(ctx context.Context, id string) (*models.Review, error) {
	if id == "" {
		return nil, nil
	}
	cctx, cancel := g.withTimeout(ctx)
	defer cancel()

	doc, err := g.reviews.Get(cctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r, err := decodeReview(doc, g.reviews.Name())
	if err != nil {
		g.logger.Warn("Skipping undecodable review", zap.String("id", id), zap.Error(err))
		return nil, nil
	}
	return r, nil
}

// List returns the reviews of a merchant, newest first.
func (g *Gateway) List(ctx context.Context, merchantID string) ([]models.Review, error) {
	return g.list(ctx, store.Where("merchantId", merchantID))
}

// ListByUser returns the reviews written by a user, newest first.
func (g *Gateway) ListByUser(ctx context.Context, userID string) ([]models.Review, error) {
	return g.list(ctx, store.Where("userId", userID))
}

// FindOne returns the user's review of a merchant, or nil. Should more than
// one exist, the newest is returned.
func (g *Gateway) FindOne(ctx context.Context, userID, merchantID string) (*models.Review, error) {
	if userID == "" || merchantID == "" {
		return nil, nil
	}
	found, err := g.list(ctx, store.Where("userId", userID), store.Where("merchantId", merchantID))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	if len(found) > 1 {
		g.logger.Warn("Duplicate reviews for user and merchant",
			zap.String("userId", userID), zap.String("merchantId", merchantID), zap.Int("count", len(found)))
	}
	return &found[0], nil
}

func (g *Gateway) list(ctx context.Context, filters ...store.Filter) ([]models.Review, error) {
	cctx, cancel := g.withTimeout(ctx)
	defer cancel()

	docs, err := g.reviews.List(cctx, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]models.Review, 0, len(docs))
	for _, doc := range docs {
		r, err := decodeReview(doc, g.reviews.Name())
		if err != nil {
			g.logger.Warn("Skipping undecodable review", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, *r)
	}
	// Sorted in process; store queries carry equality filters only.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (g *Gateway) authorize(r *models.Review) error {
	if g.session.IsSystem() || g.session.UserID == r.UserID {
		return nil
	}
	return ErrForbidden
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func validateRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return ErrInvalidRating
	}
	return nil
}
