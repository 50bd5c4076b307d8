// Package khronos wires the Program Clock, the Kalman filter, the NTP
// Sampler, and the Discipline Loop into a single running process, exposing
// the minimal surface other components (the status server, a future UI)
// need: Start, Snapshot, and Shutdown.
package khronos

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/khronos/khronos/internal/clockstate"
	"github.com/khronos/khronos/internal/config"
	"github.com/khronos/khronos/internal/discipline"
	"github.com/khronos/khronos/internal/kalman"
	"github.com/khronos/khronos/internal/monoclock"
	"github.com/khronos/khronos/internal/ntp"
)

// Handle is the running process's handle: the caller uses it to observe
// status and to shut the Discipline Loop down.
type Handle struct {
	loop   *discipline.Loop
	cancel context.CancelFunc
	done   chan error
}

// Start builds the clock, filter, and NTP query chain from cfg and runs the
// Discipline Loop in its own goroutine until ctx is cancelled or Shutdown
// is called.
func Start(ctx context.Context, cfg *config.Config) (*Handle, error) {
	initialUTC, err := time.Parse(time.RFC3339, cfg.Clock.InitialUTC)
	if err != nil {
		return nil, fmt.Errorf("khronos: invalid clock.initial_utc: %w", err)
	}

	mono := monoclock.SystemSource{}
	clock := clockstate.New(initialUTC, mono)

	filter := kalman.New(kalman.Config{
		InitialUncertainty:     cfg.Kalman.InitialUncertainty,
		DelayToRFactor:         cfg.Kalman.DelayToRFactor,
		RFloor:                 cfg.Kalman.RFloor,
		QInit:                  cfg.Kalman.QInit,
		QMin:                   cfg.Kalman.QMin,
		QMax:                   cfg.Kalman.QMax,
		QGrow:                  cfg.Kalman.QGrow,
		QShrink:                cfg.Kalman.QShrink,
		NISLow:                 cfg.Kalman.NISLow,
		NISHigh:                cfg.Kalman.NISHigh,
		NISAlpha:               cfg.Kalman.NISAlpha,
		OutlierSigma:           cfg.Kalman.OutlierSigma,
		HardResyncThresholdSec: cfg.Kalman.HardResyncThreshold.Seconds(),
	})

	querier := buildQuerier(cfg, clock)

	loopCfg := discipline.Config{
		Servers:                  cfg.NTP.Servers,
		SyncIntervalMin:          cfg.NTP.SyncIntervalMin,
		SyncIntervalMax:          cfg.NTP.SyncIntervalMax,
		RequestTimeout:           cfg.NTP.RequestTimeout,
		SlewThreshold:            cfg.Kalman.SlewThreshold,
		MaxConsecutiveRejections: 5,
		Kalman: kalman.Config{
			NISLow:  cfg.Kalman.NISLow,
			NISHigh: cfg.Kalman.NISHigh,
		},
	}

	loop := discipline.New(loopCfg, clock, filter, querier, mono)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(runCtx)
	}()

	return &Handle{loop: loop, cancel: cancel, done: done}, nil
}

// buildQuerier assembles the layered Querier chain: DNS caching, then rate
// limiting, then circuit breaking, then the raw UDP client, matching the
// order a query actually flows (resolve, then admission control, then the
// breaker gating the real I/O). clock is the Program Clock itself: the raw
// Client stamps its request and derives the offset from the Program
// Clock's own current estimate rather than the OS wall clock.
func buildQuerier(cfg *config.Config, clock *clockstate.Clock) ntp.Querier {
	client := ntp.NewClient(cfg.NTP.RequestTimeout, clock)

	breaker := ntp.NewBreakerQuerier(client, ntp.CircuitBreakerConfig{
		MaxRequests: cfg.NTP.CircuitBreaker.MaxRequests,
		Interval:    cfg.NTP.CircuitBreaker.Interval,
		Timeout:     cfg.NTP.CircuitBreaker.Timeout,
		ReadyToTrip: ntp.DefaultCircuitBreakerConfig().ReadyToTrip,
	})

	limiter := ntp.NewRateLimiter(
		rate.Limit(cfg.NTP.RateLimit.GlobalRate),
		rate.Limit(cfg.NTP.RateLimit.PerServerRate),
		cfg.NTP.RateLimit.BurstSize,
	)
	limited := ntp.NewLimitedQuerier(breaker, limiter)

	cache := ntp.NewDNSCache(ntp.DNSCacheConfig{
		MinTTL: cfg.NTP.DNSCache.MinTTL,
		MaxTTL: cfg.NTP.DNSCache.MaxTTL,
	})
	return ntp.NewCachingQuerier(limited, cache)
}

// Snapshot returns the Discipline Loop's current published status.
func (h *Handle) Snapshot() discipline.Status {
	return h.loop.Snapshot()
}

// Shutdown cancels the Discipline Loop and waits for it to finish its
// current sample-or-timeout, bounded by ctx.
func (h *Handle) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case err := <-h.done:
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
