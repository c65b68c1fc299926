package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/tabletoplab/gamescout/internal/storage"
)

// ErrCircuitOpen is returned when the provider circuit breaker is open
// and rejects calls to prevent cascading failures. It satisfies
// errors.Is(err, ErrProviderUnavailable).
var ErrCircuitOpen = fmt.Errorf("%w: circuit breaker is open", ErrProviderUnavailable)

// BreakerMetrics holds counters for breaker-protected provider calls.
type BreakerMetrics struct {
	TotalRequests  uint64
	TotalSuccesses uint64
	TotalFailures  uint64
}

// ProviderBreaker decorates an EmbeddingStore with a circuit breaker.
// The embedding store is the only provider that may sit behind a
// network for large catalogs, so it is the one worth protecting: after
// BreakerMaxFailures consecutive failures the circuit opens and calls
// fail fast with ErrCircuitOpen until BreakerTimeout elapses.
//
// storage.ErrNotFound does not count as a failure; a missing vector is
// an answer, not an outage.
type ProviderBreaker struct {
	inner   storage.EmbeddingStore
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	metrics BreakerMetrics
}

// NewProviderBreaker wraps the store using the breaker settings in cfg.
func NewProviderBreaker(inner storage.EmbeddingStore, cfg Config) *ProviderBreaker {
	pb := &ProviderBreaker{inner: inner}

	pb.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EmbeddingStoreBreaker",
		MaxRequests: 1,
		Interval:    0, // never clear counts periodically
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, storage.ErrNotFound)
		},
	})
	return pb
}

// VectorOf implements storage.EmbeddingStore.
func (pb *ProviderBreaker) VectorOf(ctx context.Context, gameID int64) ([]float32, error) {
	v, err := pb.execute(ctx, func() (interface{}, error) {
		return pb.inner.VectorOf(ctx, gameID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Nearest implements storage.EmbeddingStore.
func (pb *ProviderBreaker) Nearest(ctx context.Context, vector []float32, k int) ([]storage.Neighbor, error) {
	v, err := pb.execute(ctx, func() (interface{}, error) {
		return pb.inner.Nearest(ctx, vector, k)
	})
	if err != nil {
		return nil, err
	}
	return v.([]storage.Neighbor), nil
}

// Dimension implements storage.EmbeddingStore.
func (pb *ProviderBreaker) Dimension(ctx context.Context) (int, string, error) {
	type dim struct {
		n     int
		model string
	}
	v, err := pb.execute(ctx, func() (interface{}, error) {
		n, model, err := pb.inner.Dimension(ctx)
		return dim{n, model}, err
	})
	if err != nil {
		return 0, "", err
	}
	d := v.(dim)
	return d.n, d.model, nil
}

// execute routes one provider call through the breaker, honoring
// context cancellation on both sides of the call.
func (pb *ProviderBreaker) execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := pb.breaker.Execute(fn)
	pb.record(err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result, nil
}

// State returns "closed", "open", or "half-open".
func (pb *ProviderBreaker) State() string {
	switch pb.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Metrics returns a snapshot of the call counters.
func (pb *ProviderBreaker) Metrics() BreakerMetrics {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.metrics
}

func (pb *ProviderBreaker) record(err error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.metrics.TotalRequests++
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		pb.metrics.TotalFailures++
		return
	}
	pb.metrics.TotalSuccesses++
}
