package directory

import (
	"context"
	"fmt"
	"time"

	"venuedir/database/repository/store"
	"venuedir/models"
	"venuedir/services/media"

	"go.uber.org/zap"
)

// Directory is the merchant-facing contract used by search, geocoding,
// aggregation and the HTTP layer.
type Directory interface {
	SearchMerchants(ctx context.Context, query string) ([]models.Merchant, error)
	FetchNear(ctx context.Context, lat, lng, radiusMeters float64) ([]models.Merchant, error)
	MerchantByID(ctx context.Context, id string) (*models.Merchant, error)

	CreateMerchant(ctx context.Context, m models.Merchant) (*models.Merchant, error)
	UpdateMerchant(ctx context.Context, id string, patch MerchantPatch) (*models.Merchant, error)
	DeleteMerchant(ctx context.Context, id string) error
	UpdateCoordinate(ctx context.Context, id string, c models.Coordinate) error
	UpdateAggregate(ctx context.Context, id string, agg models.Aggregate) error
}

// Gateway serves merchant records from a store collection. It holds no state
// beyond the collection and is safe for concurrent use.
type Gateway struct {
	merchants store.Collection
	media     *media.Normalizer
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewGateway builds a Gateway. A nil normalizer uses the default public
// download host; a non-positive timeout disables the per-call bound.
func NewGateway(merchants store.Collection, normalizer *media.Normalizer, timeout time.Duration, logger *zap.Logger) (*Gateway, error) {
	if merchants == nil {
		return nil, fmt.Errorf("directory gateway initialization error: merchants collection is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = media.NewNormalizer(logger)
	}
	return &Gateway{
		merchants: merchants,
		media:     normalizer,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
