package ntp

import "fmt"

// ErrorKind classifies a recoverable sample-level failure. None of these
// propagate as a failure of the process; they are logged and folded into
// the status snapshot's failure counters.
type ErrorKind int

const (
	// ErrorKindTimeout means the server did not reply within the request timeout.
	ErrorKindTimeout ErrorKind = iota
	// ErrorKindNetwork means socket I/O or DNS resolution failed.
	ErrorKindNetwork
	// ErrorKindMalformedReply means the reply could not be decoded as a
	// well-formed NTP packet.
	ErrorKindMalformedReply
	// ErrorKindUnsynchronized means the server reported LI=3 or stratum 16.
	ErrorKindUnsynchronized
	// ErrorKindMismatch means the reply's origin timestamp did not echo
	// the request, a sign of spoofing or stale/duplicate packet delivery.
	ErrorKindMismatch
	// ErrorKindCircuitOpen means the per-server circuit breaker is open.
	ErrorKindCircuitOpen
	// ErrorKindRateLimited means the local rate limiter refused the query.
	ErrorKindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindNetwork:
		return "network"
	case ErrorKindMalformedReply:
		return "malformed_reply"
	case ErrorKindUnsynchronized:
		return "unsynchronized"
	case ErrorKindMismatch:
		return "mismatch"
	case ErrorKindCircuitOpen:
		return "circuit_open"
	case ErrorKindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// SampleError wraps a recoverable query failure with its classification
// and the server it came from.
type SampleError struct {
	Kind   ErrorKind
	Server string
	Err    error
}

func (e *SampleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ntp: %s query to %s: %v", e.Kind, e.Server, e.Err)
	}
	return fmt.Sprintf("ntp: %s query to %s", e.Kind, e.Server)
}

func (e *SampleError) Unwrap() error { return e.Err }

func newSampleError(kind ErrorKind, server string, err error) *SampleError {
	return &SampleError{Kind: kind, Server: server, Err: err}
}
