// Package config provides configuration loading with explicit naming
//
// Available functions:
//
//   LoadFromEnvVarsOnly()                     - Environment variables ONLY
//                                               Use: Docker, Kubernetes (no ConfigMap)
//
//   LoadFromYamlFile(path)                    - YAML file ONLY (no env overrides)
//                                               Use: Local development, testing
//
//   LoadFromYamlWithEnvOverrides(path)        - YAML base + Environment overrides
//                                               Use: Kubernetes (ConfigMap + env vars)
//                                               Priority: Env Vars > YAML > Defaults
//
// Environment variables supported:
//
//   CLOCK:
//     - CLOCK_INITIAL_UTC
//
//   UI:
//     - UI_REFRESH_INTERVAL
//
//   NTP:
//     - NTP_SERVERS (comma-separated)
//     - NTP_SYNC_INTERVAL_MIN, NTP_SYNC_INTERVAL_MAX, NTP_REQUEST_TIMEOUT
//     - NTP_RATE_LIMIT_GLOBAL, NTP_RATE_LIMIT_PER_SERVER, NTP_RATE_LIMIT_BURST
//     - NTP_CIRCUIT_BREAKER_MAX_REQUESTS, NTP_CIRCUIT_BREAKER_INTERVAL, NTP_CIRCUIT_BREAKER_TIMEOUT
//     - NTP_DNS_CACHE_MIN_TTL, NTP_DNS_CACHE_MAX_TTL
//
//   KALMAN:
//     - KALMAN_INITIAL_UNCERTAINTY
//     - KALMAN_DELAY_TO_R_FACTOR, KALMAN_R_FLOOR
//     - KALMAN_Q_INIT, KALMAN_Q_MIN, KALMAN_Q_MAX, KALMAN_Q_GROW, KALMAN_Q_SHRINK
//     - KALMAN_NIS_LOW, KALMAN_NIS_HIGH, KALMAN_NIS_ALPHA
//     - KALMAN_OUTLIER_SIGMA, KALMAN_HARD_RESYNC_THRESHOLD, KALMAN_SLEW_THRESHOLD
//
//   LOGGING:
//     - LOG_LEVEL (trace|debug|info|warn|error|fatal|panic)
//     - LOG_FORMAT (json|console), LOG_OUTPUT (stdout|stderr|file)
//     - LOG_ENABLE_FILE, LOG_FILE_PATH
//
//   METRICS:
//     - METRICS_LISTEN_ADDR, METRICS_NAMESPACE
//
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/khronos/khronos/pkg/logger"
)

// Config represents the complete khronosd configuration.
type Config struct {
	Clock   ClockConfig   `yaml:"clock"`
	UI      UIConfig      `yaml:"ui"`
	NTP     NTPConfig     `yaml:"ntp"`
	Kalman  KalmanConfig  `yaml:"kalman"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ClockConfig seeds the Program Clock before the first successful NTP sample.
type ClockConfig struct {
	InitialUTC string `yaml:"initial_utc"`
}

// UIConfig carries hints for the status-observing front end.
type UIConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// NTPConfig contains NTP sampler configuration.
type NTPConfig struct {
	Servers         []string             `yaml:"servers"`
	SyncIntervalMin time.Duration        `yaml:"sync_interval_min"`
	SyncIntervalMax time.Duration        `yaml:"sync_interval_max"`
	RequestTimeout  time.Duration        `yaml:"request_timeout"`
	RateLimit       RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
	DNSCache        DNSCacheConfig       `yaml:"dns_cache"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	GlobalRate    int `yaml:"global_rate"`
	PerServerRate int `yaml:"per_server_rate"`
	BurstSize     int `yaml:"burst_size"`
}

// CircuitBreakerConfig contains circuit breaker configuration.
type CircuitBreakerConfig struct {
	MaxRequests uint32        `yaml:"max_requests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DNSCacheConfig contains DNS cache configuration.
type DNSCacheConfig struct {
	MinTTL time.Duration `yaml:"min_ttl"`
	MaxTTL time.Duration `yaml:"max_ttl"`
}

// KalmanConfig contains the Kalman filter's tunable parameters.
type KalmanConfig struct {
	InitialUncertainty  float64       `yaml:"initial_uncertainty"`
	DelayToRFactor      float64       `yaml:"delay_to_r_factor"`
	RFloor              float64       `yaml:"r_floor"`
	QInit               float64       `yaml:"q_init"`
	QMin                float64       `yaml:"q_min"`
	QMax                float64       `yaml:"q_max"`
	QGrow               float64       `yaml:"q_grow"`
	QShrink             float64       `yaml:"q_shrink"`
	NISLow              float64       `yaml:"nis_low"`
	NISHigh             float64       `yaml:"nis_high"`
	NISAlpha            float64       `yaml:"nis_alpha"`
	OutlierSigma        float64       `yaml:"outlier_sigma"`
	HardResyncThreshold time.Duration `yaml:"hard_resync_threshold"`
	SlewThreshold       time.Duration `yaml:"slew_threshold"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	EnableFile bool   `yaml:"enable_file"`
	FilePath   string `yaml:"file_path"`
}

// MetricsConfig contains Prometheus metrics/status server configuration.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Namespace  string `yaml:"namespace"`
}

// LoadFromYamlFile reads configuration from a YAML file only (no env var overrides)
// Use case: Local development, testing
func LoadFromYamlFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("config", "failed to read config file", err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		logger.Error("config", "failed to parse config file", err)
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "invalid configuration", err)
		return nil, fmt.Errorf("configuration validation failed for %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromYamlWithEnvOverrides loads base config from YAML, then overrides with environment variables
// Use case: Kubernetes with ConfigMaps + env vars, Docker with config file + env vars
// Priority: Environment Variables > YAML File > Defaults
func LoadFromYamlWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadFromYamlFile(path)
	if err != nil {
		logger.Warn("config", "failed to load YAML config file, falling back to env vars only")
		cfg = &Config{}
		ApplyDefaults(cfg)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "invalid configuration after env overrides", err)
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromEnvVarsOnly loads configuration from environment variables only (no YAML file)
// Use case: Docker containers, Kubernetes pods without ConfigMaps
// Priority: Environment Variables > Defaults
func LoadFromEnvVarsOnly() (*Config, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "invalid configuration from environment", err)
		return nil, fmt.Errorf("environment configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to an existing config
func applyEnvOverrides(cfg *Config) {
	// ---------------------------------------------------------------------------
	// CLOCK
	// ---------------------------------------------------------------------------
	if initialUTC := os.Getenv("CLOCK_INITIAL_UTC"); initialUTC != "" {
		cfg.Clock.InitialUTC = initialUTC
	}

	// ---------------------------------------------------------------------------
	// UI
	// ---------------------------------------------------------------------------
	if refresh := os.Getenv("UI_REFRESH_INTERVAL"); refresh != "" {
		if d, err := time.ParseDuration(refresh); err == nil {
			cfg.UI.RefreshInterval = d
		}
	}

	// ---------------------------------------------------------------------------
	// NTP
	// ---------------------------------------------------------------------------
	if servers := os.Getenv("NTP_SERVERS"); servers != "" {
		cfg.NTP.Servers = parseCommaSeparated(servers)
	}
	if v := os.Getenv("NTP_SYNC_INTERVAL_MIN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NTP.SyncIntervalMin = d
		}
	}
	if v := os.Getenv("NTP_SYNC_INTERVAL_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NTP.SyncIntervalMax = d
		}
	}
	if v := os.Getenv("NTP_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NTP.RequestTimeout = d
		}
	}
	if v := os.Getenv("NTP_RATE_LIMIT_GLOBAL"); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.NTP.RateLimit.GlobalRate = r
		}
	}
	if v := os.Getenv("NTP_RATE_LIMIT_PER_SERVER"); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.NTP.RateLimit.PerServerRate = r
		}
	}
	if v := os.Getenv("NTP_RATE_LIMIT_BURST"); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.NTP.RateLimit.BurstSize = r
		}
	}
	if v := os.Getenv("NTP_CIRCUIT_BREAKER_MAX_REQUESTS"); v != "" {
		if r, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.NTP.CircuitBreaker.MaxRequests = uint32(r)
		}
	}
	if v := os.Getenv("NTP_CIRCUIT_BREAKER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NTP.CircuitBreaker.Interval = d
		}
	}
	if v := os.Getenv("NTP_CIRCUIT_BREAKER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NTP.CircuitBreaker.Timeout = d
		}
	}
	if v := os.Getenv("NTP_DNS_CACHE_MIN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NTP.DNSCache.MinTTL = d
		}
	}
	if v := os.Getenv("NTP_DNS_CACHE_MAX_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NTP.DNSCache.MaxTTL = d
		}
	}

	// ---------------------------------------------------------------------------
	// KALMAN
	// ---------------------------------------------------------------------------
	if v := os.Getenv("KALMAN_INITIAL_UNCERTAINTY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.InitialUncertainty = f
		}
	}
	if v := os.Getenv("KALMAN_DELAY_TO_R_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.DelayToRFactor = f
		}
	}
	if v := os.Getenv("KALMAN_R_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.RFloor = f
		}
	}
	if v := os.Getenv("KALMAN_Q_INIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.QInit = f
		}
	}
	if v := os.Getenv("KALMAN_Q_MIN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.QMin = f
		}
	}
	if v := os.Getenv("KALMAN_Q_MAX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.QMax = f
		}
	}
	if v := os.Getenv("KALMAN_Q_GROW"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.QGrow = f
		}
	}
	if v := os.Getenv("KALMAN_Q_SHRINK"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.QShrink = f
		}
	}
	if v := os.Getenv("KALMAN_NIS_LOW"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.NISLow = f
		}
	}
	if v := os.Getenv("KALMAN_NIS_HIGH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.NISHigh = f
		}
	}
	if v := os.Getenv("KALMAN_NIS_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.NISAlpha = f
		}
	}
	if v := os.Getenv("KALMAN_OUTLIER_SIGMA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kalman.OutlierSigma = f
		}
	}
	if v := os.Getenv("KALMAN_HARD_RESYNC_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Kalman.HardResyncThreshold = d
		}
	}
	if v := os.Getenv("KALMAN_SLEW_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Kalman.SlewThreshold = d
		}
	}

	// ---------------------------------------------------------------------------
	// LOGGING
	// ---------------------------------------------------------------------------
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if output := os.Getenv("LOG_OUTPUT"); output != "" {
		cfg.Logging.Output = output
	}
	if enableFile := os.Getenv("LOG_ENABLE_FILE"); enableFile != "" {
		if b, err := strconv.ParseBool(enableFile); err == nil {
			cfg.Logging.EnableFile = b
		}
	}
	if filePath := os.Getenv("LOG_FILE_PATH"); filePath != "" {
		cfg.Logging.FilePath = filePath
	}

	// ---------------------------------------------------------------------------
	// METRICS
	// ---------------------------------------------------------------------------
	if addr := os.Getenv("METRICS_LISTEN_ADDR"); addr != "" {
		cfg.Metrics.ListenAddr = addr
	}
	if namespace := os.Getenv("METRICS_NAMESPACE"); namespace != "" {
		cfg.Metrics.Namespace = namespace
	}
}

// parseCommaSeparated splits a comma-separated string
func parseCommaSeparated(s string) []string {
	var result []string
	for _, item := range splitByComma(s) {
		if trimmed := trim(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// splitByComma splits a string by comma delimiters.
// This is a utility function for parsing comma-separated values.
func splitByComma(s string) []string {
	var parts []string
	current := ""
	for _, char := range s {
		if char == ',' {
			parts = append(parts, current)
			current = ""
		} else {
			current += string(char)
		}
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

// trim removes leading and trailing whitespace characters from a string.
// Handles spaces, tabs, and newlines.
func trim(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}
