package config

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", 7 * time.Second},
		{"bare integer is seconds", "15", 15 * time.Second},
		{"with unit", "750ms", 750 * time.Millisecond},
		{"garbage", "soon", 7 * time.Second},
		{"negative", "-2s", 7 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CURATOR_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, GetEnvDuration("CURATOR_TEST_DURATION", 7*time.Second))
		})
	}
}

func TestGetEnvIntAndBool(t *testing.T) {
	t.Setenv("CURATOR_TEST_INT", "42")
	t.Setenv("CURATOR_TEST_BAD_INT", "forty")
	t.Setenv("CURATOR_TEST_BOOL", "true")

	assert.Equal(t, 42, GetEnvInt("CURATOR_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("CURATOR_TEST_BAD_INT", 1))
	assert.Equal(t, 3, GetEnvInt("CURATOR_TEST_MISSING_INT", 3))
	assert.True(t, GetEnvBool("CURATOR_TEST_BOOL", false))
	assert.True(t, GetEnvBool("CURATOR_TEST_MISSING_BOOL", true))
}

func TestDefaultConfigReadsEnvironment(t *testing.T) {
	t.Setenv("CURATOR_DB_PATH", "/tmp/other.db")
	t.Setenv("CURATOR_PORT", "9090")
	t.Setenv("CURATOR_LOG_LEVEL", "warn")
	t.Setenv("CURATOR_LLM_PROVIDER", "anthropic")

	cfg := DefaultConfig()

	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr())
	assert.Equal(t, zerolog.WarnLevel, cfg.LogLevel)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
}

func TestDefaultConfigProviderModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     LLMConfig
	}{
		{"default", "", LLMConfig{Provider: DefaultLLMProvider, Model: DefaultLLMModel}},
		{"anthropic", "anthropic", LLMConfig{Provider: "anthropic", Model: DefaultAnthropicModel}},
		{"mixed case", "Anthropic", LLMConfig{Provider: "anthropic", Model: DefaultAnthropicModel}},
		{"padded", " ANTHROPIC ", LLMConfig{Provider: "anthropic", Model: DefaultAnthropicModel}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "CURATOR_LLM_MODEL")
			if tt.provider == "" {
				unsetEnv(t, "CURATOR_LLM_PROVIDER")
			} else {
				t.Setenv("CURATOR_LLM_PROVIDER", tt.provider)
			}

			cfg := DefaultConfig()
			assert.Equal(t, tt.want.Provider, cfg.LLM.Provider)
			assert.Equal(t, tt.want.Model, cfg.LLM.Model)
		})
	}
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}
