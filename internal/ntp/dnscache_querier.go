package ntp

import (
	"context"
	"net"
)

// CachingQuerier wraps a Querier so the server hostname is resolved through
// a DNSCache before the underlying Querier dials, while the returned
// Sample (and any error) still report the original hostname rather than
// the resolved address.
type CachingQuerier struct {
	querier Querier
	cache   *DNSCache
}

// NewCachingQuerier wraps querier with hostname resolution via cache.
func NewCachingQuerier(querier Querier, cache *DNSCache) *CachingQuerier {
	return &CachingQuerier{querier: querier, cache: cache}
}

// Query resolves the host portion of server (if not already a literal IP),
// queries the resolved address, and relabels the result with the original
// server string.
func (c *CachingQuerier) Query(ctx context.Context, server string) (Sample, error) {
	host := server
	port := ""
	if h, p, err := net.SplitHostPort(server); err == nil {
		host, port = h, p
	}

	ip, err := c.cache.Resolve(ctx, host)
	if err != nil {
		return Sample{}, newSampleError(ErrorKindNetwork, server, err)
	}

	target := ip
	if port != "" {
		target = net.JoinHostPort(ip, port)
	}

	sample, err := c.querier.Query(ctx, target)
	if err != nil {
		if se, ok := err.(*SampleError); ok {
			se.Server = server
		}
		return Sample{}, err
	}
	sample.Server = server
	return sample, nil
}
