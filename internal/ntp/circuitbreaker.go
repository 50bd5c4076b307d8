package ntp

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig configures the per-server breaker.
type CircuitBreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	ReadyToTrip func(gobreaker.Counts) bool
}

// DefaultCircuitBreakerConfig trips a server's breaker once at least 3
// requests have been attempted and 60% or more of them failed, backing off
// for Timeout before allowing a single trial request through.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
	}
}

// BreakerQuerier wraps a Querier with a circuit breaker per server address,
// so a consistently failing server stops consuming query budget while
// still being retried periodically.
type BreakerQuerier struct {
	querier  Querier
	config   CircuitBreakerConfig
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerQuerier wraps querier with per-server circuit breaking.
func NewBreakerQuerier(querier Querier, config CircuitBreakerConfig) *BreakerQuerier {
	return &BreakerQuerier{
		querier:  querier,
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *BreakerQuerier) breakerForServer(server string) *gobreaker.CircuitBreaker {
	b.mu.RLock()
	breaker, ok := b.breakers[server]
	b.mu.RUnlock()
	if ok {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if breaker, ok := b.breakers[server]; ok {
		return breaker
	}

	breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        server,
		MaxRequests: b.config.MaxRequests,
		Interval:    b.config.Interval,
		Timeout:     b.config.Timeout,
		ReadyToTrip: b.config.ReadyToTrip,
	})
	b.breakers[server] = breaker
	return breaker
}

// Query executes the query through the server's circuit breaker.
func (b *BreakerQuerier) Query(ctx context.Context, server string) (Sample, error) {
	breaker := b.breakerForServer(server)
	result, err := breaker.Execute(func() (interface{}, error) {
		return b.querier.Query(ctx, server)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return Sample{}, newSampleError(ErrorKindCircuitOpen, server, err)
		}
		return Sample{}, err
	}
	return result.(Sample), nil
}

// State returns the breaker's current state for server, creating one if absent.
func (b *BreakerQuerier) State(server string) gobreaker.State {
	return b.breakerForServer(server).State()
}
