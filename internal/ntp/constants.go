package ntp

import "time"

const (
	// DefaultPort is the standard NTP service port.
	DefaultPort = 123

	// DefaultTimeout bounds a single query's round trip.
	DefaultTimeout = 5 * time.Second

	// MaxAcceptableRTT rejects replies that took implausibly long, a sign
	// of a congested path rather than a trustworthy measurement.
	MaxAcceptableRTT = 10 * time.Second

	// MinValidStratum and MaxValidStratum bound the advertised stratum of
	// an acceptable reply; stratum 0 is a KoD/special packet, 16 means
	// "unsynchronized".
	MinValidStratum = 1
	MaxValidStratum = 15

	// UnsynchronizedStratum is the sentinel stratum meaning "not synchronized".
	UnsynchronizedStratum = 16

	// MaxRootDispersion rejects servers reporting excessive accumulated error.
	MaxRootDispersion = 5 * time.Second

	// leapAlarmCondition is the LI value meaning "clock not synchronized".
	leapAlarmCondition = 3
)
