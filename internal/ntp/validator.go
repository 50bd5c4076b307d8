package ntp

import (
	"time"

	"github.com/khronos/khronos/pkg/mathutil"
)

// ValidationResult carries the outcome of validating a Sample beyond what
// Client.Query already rejects inline (stratum/LI/mismatch). It is used
// for secondary sanity checks the Discipline Loop applies before trusting
// a sample enough to corroborate a hard re-sync.
type ValidationResult struct {
	Valid    bool
	Warnings []string
}

// Validator applies secondary sanity checks to an already-decoded Sample.
type Validator struct {
	maxRootDispersion time.Duration
	maxRTT            time.Duration
}

// NewValidator creates a Validator with the given bounds.
func NewValidator(maxRootDispersion, maxRTT time.Duration) *Validator {
	return &Validator{maxRootDispersion: maxRootDispersion, maxRTT: maxRTT}
}

// Validate checks a Sample against root-dispersion, RTT and stratum sanity
// bounds. Each failed check adds a warning and marks the result invalid.
func (v *Validator) Validate(s Sample) ValidationResult {
	var warnings []string
	valid := true

	if s.RootDispersion > v.maxRootDispersion {
		warnings = append(warnings, "root dispersion exceeds configured bound")
		valid = false
	}
	if s.RTT > v.maxRTT {
		warnings = append(warnings, "round-trip time exceeds configured bound")
		valid = false
	}
	if s.Stratum < MinValidStratum || s.Stratum > MaxValidStratum {
		warnings = append(warnings, "stratum outside valid client range")
		valid = false
	}

	return ValidationResult{Valid: valid, Warnings: warnings}
}

// Corroborates reports whether two samples from independent servers agree
// closely enough to jointly justify a hard re-sync: their offsets must be
// within the larger of their mean RTT and 50ms of each other.
func Corroborates(a, b Sample) bool {
	diff := mathutil.AbsDuration(a.Offset - b.Offset)
	tolerance := mathutil.MaxDuration((a.RTT+b.RTT)/2, 50*time.Millisecond)
	return diff <= tolerance
}
