// Package mathutil provides small numeric helpers shared by the
// discipline loop and the NTP sampler packages.
package mathutil

import "time"

// AbsDuration returns the absolute value of a duration
func AbsDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// MaxDuration returns the maximum of two durations
func MaxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
