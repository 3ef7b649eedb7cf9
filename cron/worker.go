package cron

import (
	"context"
	"time"

	"venuedir/config"
	"venuedir/models"
	"venuedir/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Recomputer recomputes and stores one merchant's aggregate.
type Recomputer interface {
	Recompute(ctx context.Context, merchantID string) (models.Aggregate, error)
}

// QueueRedisOpt returns the asynq connection for the aggregate queue.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitAggregateWorker runs the aggregate retry worker in background. The
// returned server is shut down by the caller.
func InitAggregateWorker(ctx context.Context, engine Recomputer, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		QueueRedisOpt(),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeAggregateRecompute, handleAggregateTask(engine, logger))

	go monitorRedisConnection(ctx, logger)

	go func() {
		logger.Info("Starting aggregate worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("Aggregate worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("Aggregate worker gave up; stale aggregates wait for the reconciler")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
	return srv
}

func handleAggregateTask(engine Recomputer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseAggregatePayload(task)
		if err != nil {
			logger.Warn("Dropping invalid aggregate task", zap.Error(err))
			return asynq.SkipRetry
		}
		agg, err := engine.Recompute(ctx, p.MerchantID)
		if err != nil {
			logger.Warn("Aggregate retry failed", zap.String("merchantId", p.MerchantID), zap.Error(err))
			return err
		}
		logger.Info("Aggregate recomputed by retry",
			zap.String("merchantId", p.MerchantID),
			zap.Float64("averageRating", agg.AverageRating),
			zap.Int("reviewCount", agg.ReviewCount))
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				logger.Warn("Queue redis connection lost", zap.Error(err))
			}
		}
	}
}
