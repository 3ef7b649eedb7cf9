package geocode

import (
	"context"
	"errors"

	"venuedir/models"
)

// ErrNotFound is returned by a Provider when an address has no match.
var ErrNotFound = errors.New("address not found")

// Provider turns a free-text address into a coordinate.
type Provider interface {
	Resolve(ctx context.Context, address string) (models.Coordinate, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, address string) (models.Coordinate, error)

func (f ProviderFunc) Resolve(ctx context.Context, address string) (models.Coordinate, error) {
	return f(ctx, address)
}
