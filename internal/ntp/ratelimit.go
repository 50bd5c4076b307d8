package ntp

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces both a global query budget and a per-server budget,
// so a large server list cannot be hammered faster than any single server
// would tolerate.
type RateLimiter struct {
	global        *rate.Limiter
	mu            sync.Mutex
	perServer     map[string]*rate.Limiter
	perServerRate rate.Limit
	burstSize     int
}

// NewRateLimiter creates a limiter allowing globalRate queries/sec overall
// and perServerRate queries/sec to any single server, each with the given burst.
func NewRateLimiter(globalRate, perServerRate rate.Limit, burstSize int) *RateLimiter {
	return &RateLimiter{
		global:        rate.NewLimiter(globalRate, burstSize),
		perServer:     make(map[string]*rate.Limiter),
		perServerRate: perServerRate,
		burstSize:     burstSize,
	}
}

func (r *RateLimiter) limiterForServer(server string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.perServer[server]
	if !ok {
		l = rate.NewLimiter(r.perServerRate, r.burstSize)
		r.perServer[server] = l
	}
	return l
}

// Wait blocks until both the global and per-server limiters admit a query,
// or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, server string) error {
	if err := r.global.Wait(ctx); err != nil {
		return err
	}
	return r.limiterForServer(server).Wait(ctx)
}

// Allow reports, without blocking, whether a query to server is currently permitted.
func (r *RateLimiter) Allow(server string) bool {
	return r.global.Allow() && r.limiterForServer(server).Allow()
}

// LimitedQuerier wraps a Querier so every call passes through a RateLimiter first.
type LimitedQuerier struct {
	querier Querier
	limiter *RateLimiter
}

// NewLimitedQuerier wraps querier with rate limiting.
func NewLimitedQuerier(querier Querier, limiter *RateLimiter) *LimitedQuerier {
	return &LimitedQuerier{querier: querier, limiter: limiter}
}

// Query waits for rate-limiter admission, then delegates to the wrapped Querier.
func (l *LimitedQuerier) Query(ctx context.Context, server string) (Sample, error) {
	if err := l.limiter.Wait(ctx, server); err != nil {
		return Sample{}, newSampleError(ErrorKindRateLimited, server, err)
	}
	return l.querier.Query(ctx, server)
}
