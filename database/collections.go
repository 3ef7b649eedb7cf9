package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"venuedir/config"
	"venuedir/database/repository/store"
	"venuedir/utils"

	"go.uber.org/zap"
)

// Collections are the two record collections the directory runs on.
type Collections struct {
	Backend   string
	Merchants store.Collection
	Reviews   store.Collection

	closeFn func() error
}

// OpenCollections connects to the backend named by STORE_BACKEND.
func OpenCollections(ctx context.Context, logger *zap.Logger) (*Collections, error) {
	backend := strings.ToLower(strings.TrimSpace(config.AppConfig.StoreBackend))
	merchantsName := config.AppConfig.MerchantsCollection
	reviewsName := config.AppConfig.ReviewsCollection

	cols := &Collections{Backend: backend, closeFn: func() error { return nil }}
	switch backend {
	case "firestore", "":
		client, err := utils.FirebaseInit(ctx)
		if err != nil {
			return nil, err
		}
		cols.Backend = "firestore"
		cols.Merchants = store.NewFirestoreCollection(client, merchantsName)
		cols.Reviews = store.NewFirestoreCollection(client, reviewsName)
		cols.closeFn = client.Close
	case "mongo":
		client, err := InitDB(ctx)
		if err != nil {
			return nil, err
		}
		db := Database()
		cols.Merchants = store.NewMongoCollection(db, merchantsName)
		cols.Reviews = store.NewMongoCollection(db, reviewsName)
		cols.closeFn = func() error { return client.Disconnect(context.Background()) }
	case "memory":
		cols.Merchants = store.NewMemoryCollection(merchantsName)
		cols.Reviews = store.NewMemoryCollection(reviewsName)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}

	logger.Info("Record store opened",
		zap.String("backend", cols.Backend),
		zap.String("merchants", merchantsName),
		zap.String("reviews", reviewsName))
	return cols, nil
}

// Check probes the merchants collection with a point read. A missing record
// counts as healthy.
func (c *Collections) Check(ctx context.Context) error {
	_, err := c.Merchants.Get(ctx, "__health__")
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Close releases the backend client.
func (c *Collections) Close() error {
	return c.closeFn()
}
