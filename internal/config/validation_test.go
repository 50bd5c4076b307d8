package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Clock: ClockConfig{InitialUTC: "2026-01-01T00:00:00Z"},
		NTP: NTPConfig{
			Servers:         []string{"pool.ntp.org"},
			SyncIntervalMin: 4 * time.Second,
			SyncIntervalMax: 10 * time.Minute,
			RequestTimeout:  5 * time.Second,
			RateLimit:       RateLimitConfig{GlobalRate: 10, PerServerRate: 1, BurstSize: 3},
			DNSCache:        DNSCacheConfig{MinTTL: 5 * time.Minute, MaxTTL: 60 * time.Minute},
		},
		Kalman: KalmanConfig{
			InitialUncertainty:  1.0,
			DelayToRFactor:      1.0,
			RFloor:              1e-9,
			QInit:               5e-10,
			QMin:                1e-12,
			QMax:                1e-6,
			QGrow:               2.0,
			QShrink:             0.5,
			NISLow:              0.1,
			NISHigh:             3.8,
			NISAlpha:            0.1,
			OutlierSigma:        6.0,
			HardResyncThreshold: time.Second,
			SlewThreshold:       50 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Namespace: "khronos", ListenAddr: ":9559"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_DefaultConfig(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidateClock_InitialUTC(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid_rfc3339", "2026-01-01T00:00:00Z", false},
		{"valid_with_offset", "2026-01-01T00:00:00+02:00", false},
		{"empty", "", true},
		{"garbage", "not-a-timestamp", true},
		{"date_only", "2026-01-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ClockConfig{InitialUTC: tt.value}
			err := validateClock(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNTP_Servers(t *testing.T) {
	tests := []struct {
		name    string
		servers []string
		wantErr bool
	}{
		{"one_server", []string{"pool.ntp.org"}, false},
		{"multiple_servers", []string{"pool.ntp.org", "time.google.com"}, false},
		{"no_servers", nil, true},
		{"empty_slice", []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NTP.Servers = tt.servers
			err := validateNTP(&cfg.NTP)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "at least one NTP server")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNTP_RequestTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"valid_5s", 5 * time.Second, false},
		{"minimum_100ms", 100 * time.Millisecond, false},
		{"maximum_60s", 60 * time.Second, false},
		{"too_short", 10 * time.Millisecond, true},
		{"too_long", 61 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NTP.RequestTimeout = tt.timeout
			err := validateNTP(&cfg.NTP)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "request_timeout")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNTP_SyncIntervalOrdering(t *testing.T) {
	tests := []struct {
		name    string
		min     time.Duration
		max     time.Duration
		wantErr bool
	}{
		{"valid_ordering", 4 * time.Second, 10 * time.Minute, false},
		{"equal_bounds", time.Minute, time.Minute, false},
		{"min_exceeds_max", time.Hour, time.Minute, true},
		{"min_zero", 0, 10 * time.Minute, true},
		{"max_zero", 4 * time.Second, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NTP.SyncIntervalMin = tt.min
			cfg.NTP.SyncIntervalMax = tt.max
			err := validateNTP(&cfg.NTP)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNTP_RateLimit(t *testing.T) {
	tests := []struct {
		name      string
		rateLimit RateLimitConfig
		wantErr   bool
		errMsg    string
	}{
		{"valid", RateLimitConfig{GlobalRate: 10, PerServerRate: 1, BurstSize: 3}, false, ""},
		{"zero_global", RateLimitConfig{GlobalRate: 0, PerServerRate: 1, BurstSize: 3}, true, "global_rate"},
		{"zero_per_server", RateLimitConfig{GlobalRate: 10, PerServerRate: 0, BurstSize: 3}, true, "per_server_rate"},
		{"zero_burst", RateLimitConfig{GlobalRate: 10, PerServerRate: 1, BurstSize: 0}, true, "burst_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NTP.RateLimit = tt.rateLimit
			err := validateNTP(&cfg.NTP)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNTP_DNSCache(t *testing.T) {
	tests := []struct {
		name    string
		min     time.Duration
		max     time.Duration
		wantErr bool
	}{
		{"valid", 5 * time.Minute, 60 * time.Minute, false},
		{"min_exceeds_max", time.Hour, time.Minute, true},
		{"min_zero", 0, 60 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NTP.DNSCache.MinTTL = tt.min
			cfg.NTP.DNSCache.MaxTTL = tt.max
			err := validateNTP(&cfg.NTP)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKalman_PositiveFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*KalmanConfig)
		errMsg string
	}{
		{"initial_uncertainty_zero", func(k *KalmanConfig) { k.InitialUncertainty = 0 }, "initial_uncertainty"},
		{"r_floor_zero", func(k *KalmanConfig) { k.RFloor = 0 }, "r_floor"},
		{"delay_to_r_factor_zero", func(k *KalmanConfig) { k.DelayToRFactor = 0 }, "delay_to_r_factor"},
		{"q_min_zero", func(k *KalmanConfig) { k.QMin = 0 }, "q_min"},
		{"outlier_sigma_zero", func(k *KalmanConfig) { k.OutlierSigma = 0 }, "outlier_sigma"},
		{"hard_resync_threshold_zero", func(k *KalmanConfig) { k.HardResyncThreshold = 0 }, "hard_resync_threshold"},
		{"slew_threshold_zero", func(k *KalmanConfig) { k.SlewThreshold = 0 }, "slew_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Kalman)
			err := validateKalman(&cfg.Kalman)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateKalman_QBounds(t *testing.T) {
	tests := []struct {
		name    string
		qMin    float64
		qMax    float64
		qInit   float64
		wantErr bool
		errMsg  string
	}{
		{"valid_bounds", 1e-12, 1e-6, 5e-10, false, ""},
		{"q_min_exceeds_q_max", 1e-3, 1e-6, 5e-10, true, "q_min"},
		{"q_init_below_q_min", 1e-12, 1e-6, 1e-14, true, "q_init"},
		{"q_init_above_q_max", 1e-12, 1e-6, 1.0, true, "q_init"},
		{"q_init_at_bounds", 1e-12, 1e-6, 1e-12, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Kalman.QMin = tt.qMin
			cfg.Kalman.QMax = tt.qMax
			cfg.Kalman.QInit = tt.qInit
			err := validateKalman(&cfg.Kalman)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKalman_QGrowShrink(t *testing.T) {
	tests := []struct {
		name    string
		grow    float64
		shrink  float64
		wantErr bool
	}{
		{"valid", 2.0, 0.5, false},
		{"grow_equal_one", 1.0, 0.5, true},
		{"grow_below_one", 0.5, 0.5, true},
		{"shrink_zero", 2.0, 0, true},
		{"shrink_one", 2.0, 1.0, true},
		{"shrink_above_one", 2.0, 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Kalman.QGrow = tt.grow
			cfg.Kalman.QShrink = tt.shrink
			err := validateKalman(&cfg.Kalman)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKalman_NISBounds(t *testing.T) {
	tests := []struct {
		name    string
		low     float64
		high    float64
		wantErr bool
	}{
		{"valid", 0.1, 3.8, false},
		{"low_zero", 0, 3.8, true},
		{"high_below_low", 5.0, 1.0, true},
		{"equal", 1.0, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Kalman.NISLow = tt.low
			cfg.Kalman.NISHigh = tt.high
			err := validateKalman(&cfg.Kalman)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "nis_low")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKalman_NISAlpha(t *testing.T) {
	tests := []struct {
		name    string
		alpha   float64
		wantErr bool
	}{
		{"valid", 0.1, false},
		{"zero", 0, true},
		{"one", 1.0, true},
		{"above_one", 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Kalman.NISAlpha = tt.alpha
			err := validateKalman(&cfg.Kalman)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "nis_alpha")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKalman_SlewThresholdExceedsHardResyncThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Kalman.SlewThreshold = 5 * time.Second
	cfg.Kalman.HardResyncThreshold = time.Second
	err := validateKalman(&cfg.Kalman)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "slew_threshold")
}

func TestValidateLogging_Level(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	invalidLevels := []string{"invalid", "INFO", "warning", ""}

	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := &LoggingConfig{Level: level, Format: "json"}
			assert.NoError(t, validateLogging(cfg))
		})
	}

	for _, level := range invalidLevels {
		t.Run("invalid_"+level, func(t *testing.T) {
			cfg := &LoggingConfig{Level: level, Format: "json"}
			err := validateLogging(cfg)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "invalid log level")
		})
	}
}

func TestValidateLogging_Format(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json", "json", false},
		{"console", "console", false},
		{"invalid", "xml", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &LoggingConfig{Level: "info", Format: tt.format}
			err := validateLogging(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log format")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLogging_FileConfig(t *testing.T) {
	tests := []struct {
		name       string
		enableFile bool
		filePath   string
		wantErr    bool
	}{
		{"file_disabled", false, "", false},
		{"file_enabled_with_path", true, "/var/log/khronos.log", false},
		{"file_enabled_no_path", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &LoggingConfig{
				Level:      "info",
				Format:     "json",
				EnableFile: tt.enableFile,
				FilePath:   tt.filePath,
			}
			err := validateLogging(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "file_path")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMetrics(t *testing.T) {
	tests := []struct {
		name       string
		namespace  string
		listenAddr string
		wantErr    bool
		errMsg     string
	}{
		{"valid", "khronos", ":9559", false, ""},
		{"empty_namespace", "", ":9559", true, "namespace"},
		{"empty_listen_addr", "khronos", "", true, "listen_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &MetricsConfig{Namespace: tt.namespace, ListenAddr: tt.listenAddr}
			err := validateMetrics(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := DefaultConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Validate(cfg)
	}
}
