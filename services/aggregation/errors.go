package aggregation

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// AggregationError reports that a merchant's aggregate could not be
// refreshed. The review mutation that preceded it is not undone.
type AggregationError struct {
	MerchantID string
	Err        error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate for merchant %s is stale: %v", e.MerchantID, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// RetryQueue schedules a later recompute of a merchant's aggregate.
type RetryQueue interface {
	EnqueueRecompute(ctx context.Context, merchantID string) error
}

const lockStripes = 64

// stripedMutex serializes work per key with a fixed number of mutexes.
type stripedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &s.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
