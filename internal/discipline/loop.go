// Package discipline implements the Discipline Loop: the sole writer of
// Program Clock State and Filter State. It schedules NTP samples at an
// adaptive cadence, feeds them through the Kalman filter, applies the
// resulting corrections to the Program Clock, and publishes a read-only
// status snapshot for observers, following a ticker-plus-ctx.Done()
// collection loop shape.
package discipline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/khronos/khronos/internal/clockstate"
	"github.com/khronos/khronos/internal/kalman"
	"github.com/khronos/khronos/internal/monoclock"
	"github.com/khronos/khronos/internal/ntp"
	"github.com/khronos/khronos/pkg/logger"
	"github.com/khronos/khronos/pkg/mathutil"
)

// Config holds the scheduling and correction-policy parameters that govern
// the loop, sourced from the ntp.* and kalman.* configuration record.
type Config struct {
	Servers         []string
	SyncIntervalMin time.Duration
	SyncIntervalMax time.Duration
	RequestTimeout  time.Duration

	SlewThreshold            time.Duration
	MaxConsecutiveRejections int

	Kalman kalman.Config

	// intervalGrow and intervalShrink default to 1.5 and 0.5 when zero;
	// exposed for tests that want faster convergence to the bounds.
	IntervalGrow   float64
	IntervalShrink float64
}

// Status is the read-only snapshot published for observers: the UI, the
// metrics server, and anything else that calls (*Loop).Snapshot.
type Status struct {
	UTCNow   time.Time
	Offset   float64 // seconds
	DriftPPM float64
	NISEMA   float64
	QScale   float64

	LastServer  string
	LastRTT     time.Duration
	LastSyncAgo time.Duration

	EpochCounter uint64

	SampleSuccessTotal  uint64
	SampleFailureTotal  uint64
	SampleRejectedTotal uint64
}

// Loop is the Discipline Loop. It owns the Program Clock and Filter State
// exclusively; all mutation happens inside Run's single goroutine. Readers
// only ever see the atomically-published Status.
type Loop struct {
	cfg       Config
	clock     *clockstate.Clock
	filter    *kalman.Filter
	querier   ntp.Querier
	mono      monoclock.Source
	validator *ntp.Validator

	status atomic.Pointer[Status]

	currentInterval time.Duration
	lastFilterTick  time.Time

	consecutiveRejections int
	pendingCandidate      *ntp.Sample
	pendingCandidateAt    time.Time

	lastServer    string
	lastRTT       time.Duration
	lastSuccessAt time.Time

	successTotal, failureTotal, rejectedTotal uint64
}

// New constructs a Loop ready to Run. clock and filter must already be
// initialized (clock at the configured initial_utc, filter at its default
// initial conditions); the loop never creates them itself so callers can
// inject fakes in tests.
func New(cfg Config, clock *clockstate.Clock, filter *kalman.Filter, querier ntp.Querier, mono monoclock.Source) *Loop {
	if cfg.IntervalGrow <= 1 {
		cfg.IntervalGrow = 1.5
	}
	if cfg.IntervalShrink <= 0 || cfg.IntervalShrink >= 1 {
		cfg.IntervalShrink = 0.5
	}
	if cfg.MaxConsecutiveRejections <= 0 {
		cfg.MaxConsecutiveRejections = 5
	}
	l := &Loop{
		cfg:             cfg,
		clock:           clock,
		filter:          filter,
		querier:         querier,
		mono:            mono,
		validator:       ntp.NewValidator(ntp.MaxRootDispersion, ntp.MaxAcceptableRTT),
		currentInterval: cfg.SyncIntervalMin,
		lastFilterTick:  mono.Now(),
	}
	l.publishStatus()
	return l
}

// Snapshot returns the most recently published Status. Safe to call
// concurrently with Run.
func (l *Loop) Snapshot() Status {
	return *l.status.Load()
}

// Run drives the discipline cycle until ctx is cancelled, running one
// cycle immediately and then waiting at the current adaptive interval
// between cycles. It returns ctx.Err() on cancellation; no sample is left
// in flight after Run returns, since attemptServers bounds every query to
// cfg.RequestTimeout under ctx.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			l.cycle(ctx)
			timer.Reset(l.currentInterval)
		}
	}
}

func (l *Loop) cycle(ctx context.Context) {
	server, sample, err := l.attemptServers(ctx)
	if err != nil {
		l.onCycleFailure()
		return
	}
	l.onSample(server, sample)
}

// attemptServers iterates the configured server list in order, stopping at
// the first success; the configured order is the failover order (per-server
// backoff is handled by the Querier's circuit-breaker wrapper, not here).
func (l *Loop) attemptServers(ctx context.Context) (string, ntp.Sample, error) {
	var lastErr error
	for _, server := range l.cfg.Servers {
		queryCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
		sample, err := l.querier.Query(queryCtx, server)
		cancel()
		if err != nil {
			lastErr = err
			logger.Sample(server, false, map[string]interface{}{"error": err.Error()})
			continue
		}
		logger.Sample(server, true, map[string]interface{}{
			"offset_s": sample.Offset.Seconds(),
			"rtt_s":    sample.RTT.Seconds(),
		})
		return server, sample, nil
	}
	if lastErr == nil {
		lastErr = errNoServersConfigured
	}
	return "", ntp.Sample{}, lastErr
}

func (l *Loop) onCycleFailure() {
	l.advanceFilterOnly()
	l.failureTotal++
	l.shrinkInterval()
	l.publishStatus()
}

// advanceFilterOnly runs a prediction-only filter step for the elapsed
// monotonic time since the last update: on a failed cycle the filter
// still advances so P keeps inflating.
func (l *Loop) advanceFilterOnly() {
	now := l.mono.Now()
	dt := now.Sub(l.lastFilterTick).Seconds()
	if dt > 0 {
		l.filter.Predict(dt)
		l.lastFilterTick = now
	}
}

func (l *Loop) onSample(server string, sample ntp.Sample) {
	now := l.mono.Now()
	dt := now.Sub(l.lastFilterTick).Seconds()
	if dt <= 0 {
		dt = 1e-6
	}

	result := l.filter.Update(dt, sample.Offset.Seconds(), sample.RTT.Seconds())
	if !result.Rejected {
		l.lastFilterTick = now
	}

	if !l.filter.IsHealthy() {
		logger.Error("discipline", "filter state became non-finite or non-PSD, reinitializing", nil)
		l.filter.Reset(sample.Offset.Seconds(), sample.RTT.Seconds())
		l.consecutiveRejections = 0
		l.publishStatus()
		return
	}

	if result.Rejected {
		l.rejectedTotal++
		l.consecutiveRejections++
		l.shrinkInterval()

		if result.HardResyncDue {
			l.considerResync(server, sample, now)
		}
		if l.consecutiveRejections >= l.cfg.MaxConsecutiveRejections {
			l.forceResync(server, sample, "consecutive_rejections")
			l.consecutiveRejections = 0
		}
		l.publishStatus()
		return
	}

	l.consecutiveRejections = 0
	l.successTotal++
	l.lastServer = server
	l.lastRTT = sample.RTT
	l.lastSuccessAt = now

	if result.HardResyncDue {
		if l.considerResync(server, sample, now) {
			l.publishStatus()
			return
		}
	} else {
		l.pendingCandidate = nil
	}

	l.applyCorrection(result.Offset)
	l.adjustInterval()
	l.publishStatus()
}

// considerResync implements the two-server corroboration gate: a lone
// large-innovation sample is remembered as a candidate only if it passes
// secondary validation (root dispersion, RTT, stratum sanity); only when a
// second validated sample from a *different* server arrives within twice the
// max sync interval and agrees with it does a hard re-sync fire. An unvalidated
// sample is not trusted enough to start or confirm a step-change claim, but
// is not itself a failure, it is simply not eligible to corroborate.
// Returns true if a re-sync fired.
func (l *Loop) considerResync(server string, sample ntp.Sample, now time.Time) bool {
	if !l.validator.Validate(sample).Valid {
		return false
	}

	if l.pendingCandidate != nil &&
		l.pendingCandidate.Server != server &&
		now.Sub(l.pendingCandidateAt) <= 2*l.cfg.SyncIntervalMax &&
		ntp.Corroborates(*l.pendingCandidate, sample) {
		l.forceResync(server, sample, "corroborated_step_change")
		l.pendingCandidate = nil
		return true
	}

	candidate := sample
	l.pendingCandidate = &candidate
	l.pendingCandidateAt = now
	return false
}

// forceResync resets both the filter and the Program Clock and bumps the
// epoch counter, the deliberate monotonicity-breaking path reserved for
// corroborated step changes (e.g. resume from suspend) and for runs of
// consecutive outlier rejections that suggest the filter has locked onto
// a stale baseline.
func (l *Loop) forceResync(server string, sample ntp.Sample, reason string) {
	l.filter.Reset(sample.Offset.Seconds(), sample.RTT.Seconds())

	newBase := l.clock.Now().Add(sample.Offset)
	l.clock.Reset(newBase)
	l.currentInterval = l.cfg.SyncIntervalMin

	logger.Resync(reason, l.clock.Epoch(), map[string]interface{}{
		"server":   server,
		"offset_s": sample.Offset.Seconds(),
	})
}

// applyCorrection absorbs a routine filtered offset estimate into the
// Program Clock. Corrections under SlewThreshold are a single atomic
// ApplyOffset write with no epoch bump; corrections at or above it bypass
// slewing entirely via Reset.
func (l *Loop) applyCorrection(offsetSeconds float64) {
	offsetDur := time.Duration(offsetSeconds * float64(time.Second))
	if mathutil.AbsDuration(offsetDur) >= l.cfg.SlewThreshold {
		newBase := l.clock.Now().Add(offsetDur)
		l.clock.Reset(newBase)
		return
	}
	l.clock.ApplyOffset(offsetDur, false)
}

// adjustInterval grows the cadence toward SyncIntervalMax while nis_ema
// stays in band, and shrinks it otherwise. shrinkInterval below covers
// the failure/rejection paths.
func (l *Loop) adjustInterval() {
	nisEMA := l.filter.NISEMA()
	if nisEMA >= l.cfg.Kalman.NISLow && nisEMA <= l.cfg.Kalman.NISHigh {
		grown := time.Duration(float64(l.currentInterval) * l.cfg.IntervalGrow)
		if grown > l.cfg.SyncIntervalMax {
			grown = l.cfg.SyncIntervalMax
		}
		l.currentInterval = grown
		return
	}
	l.shrinkInterval()
}

func (l *Loop) shrinkInterval() {
	shrunk := time.Duration(float64(l.currentInterval) * l.cfg.IntervalShrink)
	if shrunk < l.cfg.SyncIntervalMin {
		shrunk = l.cfg.SyncIntervalMin
	}
	l.currentInterval = shrunk
}

func (l *Loop) publishStatus() {
	var lastSyncAgo time.Duration
	if !l.lastSuccessAt.IsZero() {
		lastSyncAgo = l.mono.Now().Sub(l.lastSuccessAt)
	}

	l.status.Store(&Status{
		UTCNow:   l.clock.Now(),
		Offset:   l.filter.Offset(),
		DriftPPM: l.filter.DriftPPM(),
		NISEMA:   l.filter.NISEMA(),
		QScale:   l.filter.QScale(),

		LastServer:  l.lastServer,
		LastRTT:     l.lastRTT,
		LastSyncAgo: lastSyncAgo,

		EpochCounter: l.clock.Epoch(),

		SampleSuccessTotal:  l.successTotal,
		SampleFailureTotal:  l.failureTotal,
		SampleRejectedTotal: l.rejectedTotal,
	})
}
