package config

import "time"

// ApplyDefaults sets default values for unspecified configuration fields
func ApplyDefaults(cfg *Config) {
	// Clock defaults
	if cfg.Clock.InitialUTC == "" {
		cfg.Clock.InitialUTC = "2000-01-01T00:00:00Z"
	}

	// UI defaults
	if cfg.UI.RefreshInterval == 0 {
		cfg.UI.RefreshInterval = 250 * time.Millisecond
	}

	// NTP defaults
	if len(cfg.NTP.Servers) == 0 {
		cfg.NTP.Servers = []string{
			"time.cloudflare.com",
			"time.google.com",
			"pool.ntp.org",
		}
	}
	if cfg.NTP.SyncIntervalMin == 0 {
		cfg.NTP.SyncIntervalMin = 4 * time.Second
	}
	if cfg.NTP.SyncIntervalMax == 0 {
		cfg.NTP.SyncIntervalMax = 10 * time.Minute
	}
	if cfg.NTP.RequestTimeout == 0 {
		cfg.NTP.RequestTimeout = 5 * time.Second
	}

	// Rate limiting defaults
	if cfg.NTP.RateLimit.GlobalRate == 0 {
		cfg.NTP.RateLimit.GlobalRate = 10
	}
	if cfg.NTP.RateLimit.PerServerRate == 0 {
		cfg.NTP.RateLimit.PerServerRate = 1
	}
	if cfg.NTP.RateLimit.BurstSize == 0 {
		cfg.NTP.RateLimit.BurstSize = 3
	}

	// Circuit breaker defaults
	if cfg.NTP.CircuitBreaker.MaxRequests == 0 {
		cfg.NTP.CircuitBreaker.MaxRequests = 1
	}
	if cfg.NTP.CircuitBreaker.Interval == 0 {
		cfg.NTP.CircuitBreaker.Interval = 60 * time.Second
	}
	if cfg.NTP.CircuitBreaker.Timeout == 0 {
		cfg.NTP.CircuitBreaker.Timeout = 30 * time.Second
	}

	// DNS cache defaults
	if cfg.NTP.DNSCache.MinTTL == 0 {
		cfg.NTP.DNSCache.MinTTL = 5 * time.Minute
	}
	if cfg.NTP.DNSCache.MaxTTL == 0 {
		cfg.NTP.DNSCache.MaxTTL = 60 * time.Minute
	}

	// Kalman filter defaults
	if cfg.Kalman.InitialUncertainty == 0 {
		cfg.Kalman.InitialUncertainty = 1.0
	}
	if cfg.Kalman.DelayToRFactor == 0 {
		cfg.Kalman.DelayToRFactor = 1.0
	}
	if cfg.Kalman.RFloor == 0 {
		cfg.Kalman.RFloor = 1e-9
	}
	if cfg.Kalman.QInit == 0 {
		cfg.Kalman.QInit = 5e-10
	}
	if cfg.Kalman.QMin == 0 {
		cfg.Kalman.QMin = 1e-12
	}
	if cfg.Kalman.QMax == 0 {
		cfg.Kalman.QMax = 1e-6
	}
	if cfg.Kalman.QGrow == 0 {
		cfg.Kalman.QGrow = 2.0
	}
	if cfg.Kalman.QShrink == 0 {
		cfg.Kalman.QShrink = 0.5
	}
	if cfg.Kalman.NISLow == 0 {
		cfg.Kalman.NISLow = 0.1
	}
	if cfg.Kalman.NISHigh == 0 {
		cfg.Kalman.NISHigh = 3.8
	}
	if cfg.Kalman.NISAlpha == 0 {
		cfg.Kalman.NISAlpha = 0.1
	}
	if cfg.Kalman.OutlierSigma == 0 {
		cfg.Kalman.OutlierSigma = 6.0
	}
	if cfg.Kalman.HardResyncThreshold == 0 {
		cfg.Kalman.HardResyncThreshold = time.Second
	}
	if cfg.Kalman.SlewThreshold == 0 {
		cfg.Kalman.SlewThreshold = 50 * time.Millisecond
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9559"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "khronos"
	}
}

// DefaultConfig returns a configuration with all defaults applied
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
