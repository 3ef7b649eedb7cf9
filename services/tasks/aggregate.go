package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeAggregateRecompute = "aggregate:recompute"

// AggregatePayload identifies the merchant whose aggregate must be recomputed.
type AggregatePayload struct {
	MerchantID string `json:"merchantId"`
}

func NewAggregateTask(merchantID string, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(AggregatePayload{MerchantID: merchantID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeAggregateRecompute, b)
	opts := []asynq.Option{
		asynq.ProcessIn(delay),
		asynq.MaxRetry(10),
		// one pending recompute per merchant is enough
		asynq.Unique(time.Minute),
	}
	return task, opts, nil
}

// ParseAggregatePayload decodes a recompute task payload.
func ParseAggregatePayload(task *asynq.Task) (AggregatePayload, error) {
	var p AggregatePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, err
	}
	if p.MerchantID == "" {
		return p, fmt.Errorf("aggregate task without merchant id")
	}
	return p, nil
}

// Enqueuer schedules aggregate recomputes on the asynq queue.
type Enqueuer struct {
	client *asynq.Client
	delay  time.Duration
}

func NewEnqueuer(client *asynq.Client, delay time.Duration) *Enqueuer {
	return &Enqueuer{client: client, delay: delay}
}

func (e *Enqueuer) EnqueueRecompute(ctx context.Context, merchantID string) error {
	task, opts, err := NewAggregateTask(merchantID, e.delay)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}
