package ntp

import (
	"context"
	"net"
	"sync"
	"time"
)

// DNSCacheConfig bounds the adaptive TTL used between re-resolution.
type DNSCacheConfig struct {
	MinTTL time.Duration
	MaxTTL time.Duration
}

// DefaultDNSCacheConfig re-resolves at least every hour, and as often as
// every 5 minutes when a hostname has recently failed to resolve.
func DefaultDNSCacheConfig() DNSCacheConfig {
	return DNSCacheConfig{MinTTL: 5 * time.Minute, MaxTTL: 60 * time.Minute}
}

type dnsCacheEntry struct {
	ips        []string
	expiresAt  time.Time
	errorCount int
}

// DNSCache resolves NTP server hostnames with an adaptive TTL: hostnames
// that have recently failed to resolve are re-checked sooner than ones
// that have resolved cleanly, so a flaky DNS path self-heals quickly
// without every sample paying a resolution round trip.
type DNSCache struct {
	mu       sync.Mutex
	cache    map[string]*dnsCacheEntry
	resolver *net.Resolver
	config   DNSCacheConfig
}

// NewDNSCache creates an empty cache using the system resolver.
func NewDNSCache(config DNSCacheConfig) *DNSCache {
	return &DNSCache{
		cache:    make(map[string]*dnsCacheEntry),
		resolver: net.DefaultResolver,
		config:   config,
	}
}

// Resolve returns an IP address for hostname, from cache when fresh.
func (c *DNSCache) Resolve(ctx context.Context, hostname string) (string, error) {
	if net.ParseIP(hostname) != nil {
		return hostname, nil
	}

	c.mu.Lock()
	entry, ok := c.cache[hostname]
	if ok && time.Now().Before(entry.expiresAt) && len(entry.ips) > 0 {
		ip := entry.ips[0]
		c.mu.Unlock()
		return ip, nil
	}
	c.mu.Unlock()

	lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ips, err := c.resolver.LookupHost(lookupCtx, hostname)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ok {
			entry.errorCount++
			entry.expiresAt = time.Now().Add(c.config.MinTTL)
			if len(entry.ips) > 0 {
				return entry.ips[0], nil
			}
		}
		return "", err
	}

	c.mu.Lock()
	c.cache[hostname] = &dnsCacheEntry{
		ips:       ips,
		expiresAt: time.Now().Add(c.config.MaxTTL),
	}
	c.mu.Unlock()

	if len(ips) == 0 {
		return "", &net.DNSError{Err: "no addresses found", Name: hostname}
	}
	return ips[0], nil
}

// Invalidate forces the next Resolve for hostname to re-query DNS.
func (c *DNSCache) Invalidate(hostname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, hostname)
}
