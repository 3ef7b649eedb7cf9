package geocode

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"venuedir/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// CoordinateWriter persists a resolved coordinate. Implemented by the directory gateway.
type CoordinateWriter interface {
	UpdateCoordinate(ctx context.Context, id string, c models.Coordinate) error
}

// Resolver fills in missing merchant coordinates from their address. Only
// successful lookups are cached, keyed by the trimmed address, for the
// lifetime of the Resolver. It is safe for concurrent use.
type Resolver struct {
	provider    Provider
	writer      CoordinateWriter
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string]models.Coordinate
	calls singleflight.Group
}

type Option func(*Resolver)

// WithConcurrency bounds the number of distinct addresses looked up at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithWriteBack persists every coordinate resolved for a record with an ID.
func WithWriteBack(w CoordinateWriter) Option {
	return func(r *Resolver) {
		r.writer = w
	}
}

func NewResolver(provider Provider, logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		provider:    provider,
		concurrency: 4,
		timeout:     10 * time.Second,
		logger:      logger,
		cache:       make(map[string]models.Coordinate),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCoordinates updates, in place, every record that lacks a valid
// coordinate but has an address, and returns the same slice. Each distinct
// address is looked up at most once per call. Failures leave the record
// untouched and are only logged.
func (r *Resolver) ResolveCoordinates(ctx context.Context, records []models.Merchant) []models.Merchant {
	pending := make(map[string][]int)
	var order []string
	for i := range records {
		if records[i].HasValidCoordinate() {
			continue
		}
		key := strings.TrimSpace(records[i].AddressText)
		if key == "" {
			continue
		}
		if c, ok := r.Cached(key); ok {
			records[i].Coordinate = c
			continue
		}
		if _, seen := pending[key]; !seen {
			order = append(order, key)
		}
		pending[key] = append(pending[key], i)
	}
	if len(order) == 0 || r.provider == nil {
		return records
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, key := range order {
		key, idxs := key, pending[key]
		g.Go(func() error {
			c, ok := r.lookup(ctx, key)
			if !ok {
				return nil
			}
			for _, i := range idxs {
				records[i].Coordinate = c
				r.writeBack(ctx, records[i].ID, c)
			}
			return nil
		})
	}
	_ = g.Wait()
	return records
}

// Cached returns the cached coordinate for an address.
func (r *Resolver) Cached(address string) (models.Coordinate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[strings.TrimSpace(address)]
	return c, ok
}

func (r *Resolver) lookup(ctx context.Context, key string) (models.Coordinate, bool) {
	v, err, _ := r.calls.Do(key, func() (interface{}, error) {
		if c, ok := r.Cached(key); ok {
			return c, nil
		}
		// Shared by every caller waiting on key, so one caller going away
		// must not cancel it for the rest.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		c, err := r.provider.Resolve(cctx, key)
		if err != nil {
			return nil, err
		}
		if !c.IsValid() {
			return nil, ErrNotFound
		}
		r.mu.Lock()
		r.cache[key] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Info("Address not found by geocoder", zap.String("address", key))
		} else {
			r.logger.Warn("Geocoding failed", zap.String("address", key), zap.Error(err))
		}
		return models.Coordinate{}, false
	}
	return v.(models.Coordinate), true
}

func (r *Resolver) writeBack(ctx context.Context, id string, c models.Coordinate) {
	if r.writer == nil || id == "" {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.writer.UpdateCoordinate(cctx, id, c); err != nil {
		r.logger.Warn("Failed to persist resolved coordinate", zap.String("id", id), zap.Error(err))
	}
}
