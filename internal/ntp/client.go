// Package ntp implements the NTP Sampler: a client-mode NTP query cycle
// with rate limiting, per-server circuit breaking, DNS caching, and reply
// validation, built on top of internal/ntpwire's packet codec.
package ntp

import (
	"context"
	"net"
	"time"

	"github.com/khronos/khronos/internal/monoclock"
	"github.com/khronos/khronos/internal/ntpwire"
)

// Sample is a validated NTP measurement ready to be fed into the Kalman filter.
type Sample struct {
	Server         string
	Offset         time.Duration // T2,T3 vs T1,T4 clock offset
	RTT            time.Duration
	Stratum        uint8
	LeapIndicator  uint8
	ReferenceID    uint32
	RootDelay      time.Duration
	RootDispersion time.Duration
	ReferenceTime  time.Time
	Origin         time.Time
	Receive        time.Time
	Transmit       time.Time
	Destination    time.Time
}

// Querier performs a single NTP query cycle against one server. It exists
// as an interface so the circuit breaker and the Sampler's test suite can
// wrap or fake it.
type Querier interface {
	Query(ctx context.Context, server string) (Sample, error)
}

// Clock supplies the local time estimate a query is timestamped against.
// It is satisfied by *clockstate.Clock: stamping the outgoing request (and
// deriving the offset) from the Program Clock's own disciplined estimate,
// rather than the raw OS wall clock, is what closes the feedback loop,
// so the measured offset reflects Khronos's own error, not the OS's.
type Clock interface {
	Now() time.Time
}

// Client is the concrete UDP-based Querier.
type Client struct {
	timeout time.Duration
	mono    monoclock.Source
	clock   Clock
	dialer  net.Dialer
}

// NewClient creates a Client with the given per-query timeout, stamping
// requests from clock.
func NewClient(timeout time.Duration, clock Clock) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{timeout: timeout, mono: monoclock.SystemSource{}, clock: clock}
}

// Query sends a single client-mode NTP request to server (host or
// host:port, default port 123) and returns a validated Sample.
func (c *Client) Query(ctx context.Context, server string) (Sample, error) {
	addr := withDefaultPort(server)

	queryCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(queryCtx, "udp", addr)
	if err != nil {
		return Sample{}, newSampleError(ErrorKindNetwork, server, err)
	}
	defer conn.Close()

	if deadline, ok := queryCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	originWall := c.clock.Now().UTC()
	req := ntpwire.NewClientRequest(originWall)
	t1 := c.mono.Now()

	reqBytes, err := req.Bytes()
	if err != nil {
		return Sample{}, newSampleError(ErrorKindMalformedReply, server, err)
	}

	if _, err := conn.Write(reqBytes); err != nil {
		return Sample{}, newSampleError(ErrorKindNetwork, server, err)
	}

	respBuf := make([]byte, ntpwire.PacketSizeBytes)
	n, err := conn.Read(respBuf)
	t4 := c.mono.Now()
	if err != nil {
		if ctx.Err() != nil || queryCtx.Err() != nil {
			return Sample{}, newSampleError(ErrorKindTimeout, server, err)
		}
		return Sample{}, newSampleError(ErrorKindNetwork, server, err)
	}

	reply, err := ntpwire.DecodePacket(respBuf[:n])
	if err != nil {
		return Sample{}, newSampleError(ErrorKindMalformedReply, server, err)
	}
	if !reply.ValidReplySettings() {
		return Sample{}, newSampleError(ErrorKindMalformedReply, server, nil)
	}

	if !closeEnough(reply.OriginTime(), originWall) {
		return Sample{}, newSampleError(ErrorKindMismatch, server, nil)
	}

	if reply.LeapIndicator() == leapAlarmCondition || reply.Stratum >= UnsynchronizedStratum || reply.Stratum == 0 {
		return Sample{}, newSampleError(ErrorKindUnsynchronized, server, nil)
	}

	t2 := reply.ReceiveTime()
	t3 := reply.TransmitTime()
	destinationWall := originWall.Add(t4.Sub(t1))

	offset, rtt := computeOffsetAndRTT(originWall, t2, t3, destinationWall)
	if rtt < 0 || rtt > MaxAcceptableRTT {
		return Sample{}, newSampleError(ErrorKindMalformedReply, server, nil)
	}

	return Sample{
		Server:         server,
		Offset:         offset,
		RTT:            rtt,
		Stratum:        reply.Stratum,
		LeapIndicator:  reply.LeapIndicator(),
		ReferenceID:    reply.ReferenceID,
		RootDelay:      ntpFixedToDuration(reply.RootDelay),
		RootDispersion: ntpFixedToDuration(reply.RootDispersion),
		ReferenceTime:  reply.ReferenceTime(),
		Origin:         originWall,
		Receive:        t2,
		Transmit:       t3,
		Destination:    destinationWall,
	}, nil
}

// computeOffsetAndRTT applies the standard four-timestamp NTP formulas:
// offset = ((T2-T1)+(T3-T4))/2, and rtt = (T4-T1)-(T3-T2), which subtracts
// the server's own dwell time (T3-T2) from the measured round trip so rtt
// reflects network delay alone.
func computeOffsetAndRTT(t1, t2, t3, t4 time.Time) (offset, rtt time.Duration) {
	offset = (t2.Sub(t1) + t3.Sub(t4)) / 2
	rtt = t4.Sub(t1) - t3.Sub(t2)
	return offset, rtt
}

// withDefaultPort appends the standard NTP port if the address has none.
func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "123")
}

// closeEnough tolerates sub-microsecond rounding introduced by the NTP
// 32.32 fixed-point encoding when comparing the echoed origin timestamp.
func closeEnough(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < time.Microsecond
}

// ntpFixedToDuration converts a 16.16 fixed-point NTP short-format field
// (used for root delay/dispersion) into a time.Duration.
func ntpFixedToDuration(v uint32) time.Duration {
	seconds := float64(v) / 65536.0
	return time.Duration(seconds * float64(time.Second))
}
