// Package kalman implements the 2-state (offset, drift) Kalman filter that
// turns a noisy sequence of NTP offset measurements into a smoothed offset
// and drift estimate, with NIS-driven adaptive process noise.
package kalman

import "math"

// Config holds the tunable parameters of the filter, sourced from the
// kalman.* configuration record.
type Config struct {
	InitialUncertainty float64 // seeds the diagonal of P0

	DelayToRFactor float64 // R = DelayToRFactor*(rtt/2)^2 + RFloor
	RFloor         float64

	QInit   float64
	QMin    float64
	QMax    float64
	QGrow   float64
	QShrink float64

	NISLow   float64
	NISHigh  float64
	NISAlpha float64

	OutlierSigma           float64
	HardResyncThresholdSec float64
}

// DefaultConfig returns a conservative parameter set suitable for a
// typical internet-facing NTP sampling schedule.
func DefaultConfig() Config {
	return Config{
		InitialUncertainty:     1.0,
		DelayToRFactor:         1.0,
		RFloor:                 1e-9,
		QInit:                  5e-10,
		QMin:                   1e-12,
		QMax:                   1e-6,
		QGrow:                  2.0,
		QShrink:                0.5,
		NISLow:                 0.1,
		NISHigh:                3.8,
		NISAlpha:               0.1,
		OutlierSigma:           6.0,
		HardResyncThresholdSec: 1.0,
	}
}

// Filter is a 2-state Kalman filter tracking clock offset (seconds) and
// drift (seconds/second). It is not safe for concurrent use; the
// Discipline Loop is its single caller.
type Filter struct {
	cfg Config

	x [2]float64    // [offset, drift]
	p [2][2]float64 // error covariance

	qScale  float64
	nisEMA  float64
	primed  bool // true once the first successful measurement has seeded x
}

// New creates a Filter in its initial, unprimed state.
func New(cfg Config) *Filter {
	f := &Filter{cfg: cfg, qScale: cfg.QInit}
	f.p[0][0] = cfg.InitialUncertainty * cfg.InitialUncertainty
	f.p[1][1] = cfg.InitialUncertainty * cfg.InitialUncertainty
	f.nisEMA = 1.0 // neutral EMA start: neither grows nor shrinks q_scale immediately
	return f
}

// Offset returns the current filtered offset estimate in seconds.
func (f *Filter) Offset() float64 { return f.x[0] }

// DriftPPM returns the current drift estimate in parts per million.
func (f *Filter) DriftPPM() float64 { return f.x[1] * 1e6 }

// QScale returns the current adaptive process-noise scale.
func (f *Filter) QScale() float64 { return f.qScale }

// NISEMA returns the exponentially-smoothed normalized innovation squared.
func (f *Filter) NISEMA() float64 { return f.nisEMA }

// predict advances x and P by dt seconds with no measurement.
func (f *Filter) predict(dt float64) {
	f.x[0] += f.x[1] * dt

	p00, p01 := f.p[0][0], f.p[0][1]
	p10, p11 := f.p[1][0], f.p[1][1]

	// F * P
	a00 := p00 + dt*p10
	a01 := p01 + dt*p11
	a10 := p10
	a11 := p11

	// (F * P) * F^T
	f.p[0][0] = a00 + dt*a01
	f.p[0][1] = a01
	f.p[1][0] = a10 + dt*a11
	f.p[1][1] = a11

	q := f.qScale
	dt2 := dt * dt
	dt3 := dt2 * dt
	f.p[0][0] += q * dt3 / 3
	f.p[0][1] += q * dt2 / 2
	f.p[1][0] += q * dt2 / 2
	f.p[1][1] += q * dt
}

// Predict advances the filter by dt seconds with no measurement, growing P
// through the process-noise term only. The Discipline Loop calls this on a
// failed sampling cycle so that uncertainty keeps inflating while no
// server is reachable.
func (f *Filter) Predict(dt float64) {
	f.predict(dt)
}

// Result describes the outcome of feeding one measurement to the filter.
type Result struct {
	Offset   float64
	DriftPPM float64
	NIS      float64
	Rejected bool
	// HardResyncDue is set when the innovation exceeds HardResyncThresholdSec;
	// the Discipline Loop decides whether a second server corroborates it.
	HardResyncDue bool
}

// Update advances the filter by dt seconds and folds in a new offset
// measurement with the given round-trip time, returning the updated state.
// On the very first successful measurement the filter snaps its offset
// state directly to z instead of blending, since there is no prior
// estimate worth weighing against it.
func (f *Filter) Update(dt, z, rtt float64) Result {
	if !f.primed {
		f.predict(dt)
		f.x[0] = z
		r := f.measurementNoise(rtt)
		f.p[0][0] = r
		f.p[0][1] = 0
		f.p[1][0] = 0
		f.primed = true
		return Result{Offset: f.x[0], DriftPPM: f.DriftPPM()}
	}

	priorX, priorP := f.x, f.p
	f.predict(dt)

	r := f.measurementNoise(rtt)
	y := z - f.x[0]
	s := f.p[0][0] + r
	nis := y * y / s

	gateLimit := f.cfg.OutlierSigma * math.Sqrt(s)
	inBandEMA := f.nisEMA >= f.cfg.NISLow && f.nisEMA <= f.cfg.NISHigh
	if math.Abs(y) > gateLimit && inBandEMA {
		// Gated samples leave x, P, nis_ema, and q_scale untouched: folding
		// the rejected spike's huge NIS into nis_ema would push it above
		// NISHigh and disable inBandEMA, letting the very next outlier
		// through ungated.
		f.x, f.p = priorX, priorP
		return Result{
			Offset:        f.x[0],
			DriftPPM:      f.DriftPPM(),
			NIS:           nis,
			Rejected:      true,
			HardResyncDue: math.Abs(y) > f.cfg.HardResyncThresholdSec,
		}
	}

	k0 := f.p[0][0] / s
	k1 := f.p[1][0] / s

	f.x[0] += k0 * y
	f.x[1] += k1 * y

	f.josephUpdate(k0, k1, r)
	f.updateNISEMAAndQ(nis)

	return Result{
		Offset:        f.x[0],
		DriftPPM:      f.DriftPPM(),
		NIS:           nis,
		HardResyncDue: math.Abs(y) > f.cfg.HardResyncThresholdSec,
	}
}

// josephUpdate applies P = (I-KH) P_pred (I-KH)^T + K R K^T, which stays
// symmetric and positive semi-definite under floating-point rounding even
// when the simpler P = (I-KH) P_pred form would drift negative.
func (f *Filter) josephUpdate(k0, k1, r float64) {
	p00, p01 := f.p[0][0], f.p[0][1]
	p10, p11 := f.p[1][0], f.p[1][1]

	// (I - K H) where H = [1, 0]:
	// [[1-k0, 0], [-k1, 1]]
	imkh00, imkh01 := 1-k0, 0.0
	imkh10, imkh11 := -k1, 1.0

	// (I-KH) * P_pred
	b00 := imkh00*p00 + imkh01*p10
	b01 := imkh00*p01 + imkh01*p11
	b10 := imkh10*p00 + imkh11*p10
	b11 := imkh10*p01 + imkh11*p11

	// ((I-KH) * P_pred) * (I-KH)^T
	c00 := b00*imkh00 + b01*imkh01
	c01 := b00*imkh10 + b01*imkh11
	c10 := b10*imkh00 + b11*imkh01
	c11 := b10*imkh10 + b11*imkh11

	// K R K^T
	c00 += k0 * r * k0
	c01 += k0 * r * k1
	c10 += k1 * r * k0
	c11 += k1 * r * k1

	avgOffDiag := (c01 + c10) / 2
	f.p[0][0] = c00
	f.p[0][1] = avgOffDiag
	f.p[1][0] = avgOffDiag
	f.p[1][1] = c11
}

// updateNISEMAAndQ applies the EMA smoothing and the multiplicative
// exponential adaptive-Q rule, then clamps q_scale with the grow/shrink
// factors as bounding steps rather than a second independent update.
func (f *Filter) updateNISEMAAndQ(nis float64) {
	f.nisEMA = (1-f.cfg.NISAlpha)*f.nisEMA + f.cfg.NISAlpha*nis

	eta := math.Log(f.cfg.QGrow)
	factor := math.Exp(eta * (f.nisEMA - 1))
	f.qScale *= math.Max(f.cfg.QShrink, math.Min(f.cfg.QGrow, factor))

	if f.nisEMA > f.cfg.NISHigh {
		f.qScale = math.Min(f.qScale, f.cfg.QMax)
	} else if f.nisEMA < f.cfg.NISLow {
		f.qScale = math.Max(f.qScale, f.cfg.QMin)
	}
	f.qScale = math.Max(f.cfg.QMin, math.Min(f.cfg.QMax, f.qScale))
}

func (f *Filter) measurementNoise(rtt float64) float64 {
	halfRTT := rtt / 2
	return f.cfg.DelayToRFactor*halfRTT*halfRTT + f.cfg.RFloor
}

// IsHealthy reports whether P still holds finite, non-negative diagonal
// entries. The Discipline Loop calls this after every update to detect
// numerical poisoning and trigger a hard filter re-initialize.
func (f *Filter) IsHealthy() bool {
	for _, v := range []float64{f.p[0][0], f.p[0][1], f.p[1][0], f.p[1][1], f.x[0], f.x[1], f.qScale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return f.p[0][0] >= 0 && f.p[1][1] >= 0
}

// Reset reinitializes state to z for a hard re-sync: offset variance
// collapses to R, drift uncertainty is preserved from InitialUncertainty.
func (f *Filter) Reset(z, rtt float64) {
	f.x[0] = z
	f.x[1] = 0
	f.p[0][0] = f.measurementNoise(rtt)
	f.p[0][1] = 0
	f.p[1][0] = 0
	f.p[1][1] = f.cfg.InitialUncertainty * f.cfg.InitialUncertainty
	f.qScale = f.cfg.QInit
	f.nisEMA = 1.0
	f.primed = true
}
