package cron

import (
	"context"
	"time"

	"venuedir/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MerchantLister lists every merchant. Implemented by the directory gateway.
type MerchantLister interface {
	SearchMerchants(ctx context.Context, query string) ([]models.Merchant, error)
}

// Sweeper closes idle search sessions. Implemented by the search registry.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// ReconcileAll recomputes the aggregate of every merchant. Failures are
// logged and do not stop the run. It returns how many merchants succeeded.
func ReconcileAll(ctx context.Context, merchants MerchantLister, engine Recomputer, logger *zap.Logger) int {
	all, err := merchants.SearchMerchants(ctx, "")
	if err != nil {
		logger.Error("Reconcile: failed to list merchants", zap.Error(err))
		return 0
	}
	ok := 0
	for _, m := range all {
		if ctx.Err() != nil {
			break
		}
		if _, err := engine.Recompute(ctx, m.ID); err != nil {
			logger.Warn("Reconcile: aggregate recompute failed", zap.String("merchantId", m.ID), zap.Error(err))
			continue
		}
		ok++
	}
	logger.Info("Reconcile finished", zap.Int("merchants", len(all)), zap.Int("recomputed", ok))
	return ok
}

// StartScheduler runs the periodic jobs: aggregate reconciliation on
// reconcileSpec and the search session sweep every minute. Stop the
// returned scheduler on shutdown.
func StartScheduler(ctx context.Context, reconcileSpec string, merchants MerchantLister, engine Recomputer,
	sessions Sweeper, idle time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(reconcileSpec, func() {
		ReconcileAll(ctx, merchants, engine, logger)
	}); err != nil {
		return nil, err
	}
	if sessions != nil {
		if _, err := c.AddFunc("@every 1m", func() {
			sessions.Sweep(idle)
		}); err != nil {
			return nil, err
		}
	}
	c.Start()
	logger.Info("Scheduler started", zap.String("reconcile", reconcileSpec))
	return c, nil
}
