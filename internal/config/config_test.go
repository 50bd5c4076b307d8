package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYamlFile_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
clock:
  initial_utc: "2026-01-01T00:00:00Z"

ntp:
  servers:
    - "pool.ntp.org"
    - "time.google.com"
  request_timeout: 5s

logging:
  level: "info"
  format: "json"

metrics:
  namespace: "khronos"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromYamlFile(configFile)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "2026-01-01T00:00:00Z", cfg.Clock.InitialUTC)
	assert.Equal(t, 5*time.Second, cfg.NTP.RequestTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "khronos", cfg.Metrics.Namespace)
}

func TestLoadFromYamlFile_FileNotFound(t *testing.T) {
	cfg, err := LoadFromYamlFile("/nonexistent/config.yaml")

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromYamlFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "bad.yaml")

	err := os.WriteFile(configFile, []byte("ntp:\n  servers: [\n    invalid"), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromYamlFile(configFile)

	assert.Error(t, err)
	assert.Nil(t, cfg)
	if err != nil {
		assert.Contains(t, err.Error(), "failed to parse")
	}
}

func TestLoadFromYamlFile_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
clock:
  initial_utc: "not-a-timestamp"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromYamlFile(configFile)

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestLoadFromEnvVarsOnly_Defaults(t *testing.T) {
	os.Unsetenv("CLOCK_INITIAL_UTC")
	os.Unsetenv("NTP_SERVERS")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := LoadFromEnvVarsOnly()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":9559", cfg.Metrics.ListenAddr)
	assert.NotEmpty(t, cfg.NTP.Servers)
}

func TestLoadFromEnvVarsOnly_WithOverrides(t *testing.T) {
	os.Setenv("CLOCK_INITIAL_UTC", "2026-06-01T00:00:00Z")
	os.Setenv("NTP_SERVERS", "time.google.com,time.cloudflare.com")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("CLOCK_INITIAL_UTC")
		os.Unsetenv("NTP_SERVERS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := LoadFromEnvVarsOnly()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "2026-06-01T00:00:00Z", cfg.Clock.InitialUTC)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Contains(t, cfg.NTP.Servers, "time.google.com")
	assert.Contains(t, cfg.NTP.Servers, "time.cloudflare.com")
}

func TestLoadFromEnvVarsOnly_InvalidInitialUTC(t *testing.T) {
	os.Setenv("CLOCK_INITIAL_UTC", "garbage")
	defer os.Unsetenv("CLOCK_INITIAL_UTC")

	cfg, err := LoadFromEnvVarsOnly()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single_server",
			input:    "pool.ntp.org",
			expected: []string{"pool.ntp.org"},
		},
		{
			name:     "multiple_servers",
			input:    "pool.ntp.org,time.google.com,time.cloudflare.com",
			expected: []string{"pool.ntp.org", "time.google.com", "time.cloudflare.com"},
		},
		{
			name:     "servers_with_spaces",
			input:    "pool.ntp.org , time.google.com , time.cloudflare.com",
			expected: []string{"pool.ntp.org", "time.google.com", "time.cloudflare.com"},
		},
		{
			name:     "empty_string",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace_only",
			input:    "   ,   ,   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCommaSeparated(tt.input)
			if tt.expected == nil && result == nil {
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSplitByComma(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single_item",
			input:    "test",
			expected: []string{"test"},
		},
		{
			name:     "multiple_items",
			input:    "a,b,c",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "empty_string",
			input:    "",
			expected: nil,
		},
		{
			name:     "trailing_comma",
			input:    "a,b,",
			expected: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitByComma(tt.input)
			if tt.expected == nil && result == nil {
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no_whitespace", input: "test", expected: "test"},
		{name: "leading_spaces", input: "   test", expected: "test"},
		{name: "trailing_spaces", input: "test   ", expected: "test"},
		{name: "both_sides", input: "  test  ", expected: "test"},
		{name: "tabs_and_newlines", input: "\t\ntest\n\t", expected: "test"},
		{name: "empty_string", input: "", expected: ""},
		{name: "only_whitespace", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := trim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadFromEnvVarsOnly_WithServersWithSpaces(t *testing.T) {
	os.Setenv("NTP_SERVERS", " pool.ntp.org , time.google.com , time.cloudflare.com ")
	defer os.Unsetenv("NTP_SERVERS")

	cfg, err := LoadFromEnvVarsOnly()

	require.NoError(t, err)
	assert.Len(t, cfg.NTP.Servers, 3)
	assert.Equal(t, "pool.ntp.org", cfg.NTP.Servers[0])
	assert.Equal(t, "time.google.com", cfg.NTP.Servers[1])
	assert.Equal(t, "time.cloudflare.com", cfg.NTP.Servers[2])
}

func TestLoadFromYamlWithEnvOverrides_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
ntp:
  servers:
    - "pool.ntp.org"
  request_timeout: 5s
logging:
  level: "info"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	os.Setenv("NTP_REQUEST_TIMEOUT", "2s")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("NTP_REQUEST_TIMEOUT")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := LoadFromYamlWithEnvOverrides(configFile)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Contains(t, cfg.NTP.Servers, "pool.ntp.org")
	assert.Equal(t, 2*time.Second, cfg.NTP.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func BenchmarkLoadFromYamlFile(b *testing.B) {
	tmpDir := b.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
ntp:
  servers: ["pool.ntp.org"]
  request_timeout: 5s
logging:
  level: "info"
metrics:
  namespace: "khronos"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LoadFromYamlFile(configFile)
	}
}

func BenchmarkLoadFromEnvVarsOnly(b *testing.B) {
	os.Setenv("NTP_SERVERS", "pool.ntp.org,time.google.com")
	defer os.Unsetenv("NTP_SERVERS")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LoadFromEnvVarsOnly()
	}
}
