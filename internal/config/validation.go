package config

import (
	"errors"
	"strconv"
	"time"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if err := validateClock(&cfg.Clock); err != nil {
		return err
	}

	if err := validateNTP(&cfg.NTP); err != nil {
		return err
	}

	if err := validateKalman(&cfg.Kalman); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	if err := validateMetrics(&cfg.Metrics); err != nil {
		return err
	}

	return nil
}

func validateClock(cfg *ClockConfig) error {
	if cfg.InitialUTC == "" {
		return errors.New("clock.initial_utc is required")
	}
	if _, err := time.Parse(time.RFC3339, cfg.InitialUTC); err != nil {
		return errors.New("clock.initial_utc must be an RFC 3339 instant: " + err.Error())
	}
	return nil
}

func validateNTP(cfg *NTPConfig) error {
	if len(cfg.Servers) == 0 {
		return errors.New("at least one NTP server must be configured")
	}

	if cfg.RequestTimeout < 100*time.Millisecond || cfg.RequestTimeout > 60*time.Second {
		return errors.New("ntp.request_timeout must be between 100ms and 60s")
	}

	if cfg.SyncIntervalMin <= 0 {
		return errors.New("ntp.sync_interval_min must be positive")
	}
	if cfg.SyncIntervalMax <= 0 {
		return errors.New("ntp.sync_interval_max must be positive")
	}
	if cfg.SyncIntervalMin > cfg.SyncIntervalMax {
		return errors.New("ntp.sync_interval_min must not exceed ntp.sync_interval_max")
	}

	if cfg.RateLimit.GlobalRate < 1 {
		return errors.New("ntp.rate_limit.global_rate must be at least 1")
	}
	if cfg.RateLimit.PerServerRate < 1 {
		return errors.New("ntp.rate_limit.per_server_rate must be at least 1")
	}
	if cfg.RateLimit.BurstSize < 1 {
		return errors.New("ntp.rate_limit.burst_size must be at least 1")
	}

	if cfg.DNSCache.MinTTL <= 0 {
		return errors.New("ntp.dns_cache.min_ttl must be positive")
	}
	if cfg.DNSCache.MinTTL > cfg.DNSCache.MaxTTL {
		return errors.New("ntp.dns_cache.min_ttl must not exceed ntp.dns_cache.max_ttl")
	}

	return nil
}

func validateKalman(cfg *KalmanConfig) error {
	if cfg.InitialUncertainty <= 0 {
		return errors.New("kalman.initial_uncertainty must be positive")
	}
	if cfg.RFloor <= 0 {
		return errors.New("kalman.r_floor must be positive")
	}
	if cfg.DelayToRFactor <= 0 {
		return errors.New("kalman.delay_to_r_factor must be positive")
	}
	if cfg.QMin <= 0 {
		return errors.New("kalman.q_min must be positive")
	}
	if cfg.QMin > cfg.QMax {
		return errors.New("kalman.q_min must not exceed kalman.q_max, got q_min=" +
			strconv.FormatFloat(cfg.QMin, 'g', -1, 64) + " q_max=" + strconv.FormatFloat(cfg.QMax, 'g', -1, 64))
	}
	if cfg.QInit < cfg.QMin || cfg.QInit > cfg.QMax {
		return errors.New("kalman.q_init must lie within [q_min, q_max]")
	}
	if cfg.QGrow <= 1 {
		return errors.New("kalman.q_grow must be greater than 1")
	}
	if cfg.QShrink <= 0 || cfg.QShrink >= 1 {
		return errors.New("kalman.q_shrink must lie in (0, 1)")
	}
	if cfg.NISLow <= 0 || cfg.NISHigh <= cfg.NISLow {
		return errors.New("kalman.nis_low must be positive and less than kalman.nis_high")
	}
	if cfg.NISAlpha <= 0 || cfg.NISAlpha >= 1 {
		return errors.New("kalman.nis_alpha must lie in (0, 1)")
	}
	if cfg.OutlierSigma <= 0 {
		return errors.New("kalman.outlier_sigma must be positive")
	}
	if cfg.HardResyncThreshold <= 0 {
		return errors.New("kalman.hard_resync_threshold must be positive")
	}
	if cfg.SlewThreshold <= 0 {
		return errors.New("kalman.slew_threshold must be positive")
	}
	if cfg.SlewThreshold > cfg.HardResyncThreshold {
		return errors.New("kalman.slew_threshold must not exceed kalman.hard_resync_threshold")
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLevels[cfg.Level] {
		return errors.New("invalid log level (must be trace, debug, info, warn, error, fatal, or panic)")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[cfg.Format] {
		return errors.New("invalid log format (must be json or console)")
	}

	if cfg.EnableFile && cfg.FilePath == "" {
		return errors.New("file_path is required when enable_file is true")
	}

	return nil
}

func validateMetrics(cfg *MetricsConfig) error {
	if cfg.Namespace == "" {
		return errors.New("namespace is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}

	return nil
}
