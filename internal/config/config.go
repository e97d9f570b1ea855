package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	SourcesPath string
	DBPath      string

	// Server settings
	ServerHost string
	ServerPort int

	// Scraping settings
	FetchTimeout      time.Duration
	UserAgent         string
	ScrapeSchedule    string
	ScrapeOnStart     bool
	RescoreYieldEvery int

	LLM LLMConfig

	// Log settings
	LogLevel zerolog.Level
}

// LLMConfig describes how to reach the completion service used for enrichment.
type LLMConfig struct {
	Provider string
	Endpoint string
	Model    string
	APIKey   string
}

// DefaultConfig returns an initial configuration with hardcoded defaults
// overridden by whatever CURATOR_* variables are present.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	provider := strings.ToLower(strings.TrimSpace(GetEnvString("CURATOR_LLM_PROVIDER", DefaultLLMProvider)))
	model := DefaultLLMModel
	if provider == "anthropic" {
		model = DefaultAnthropicModel
	}

	return &Config{
		SourcesPath:       GetEnvString("CURATOR_SOURCES_PATH", DefaultSourcesPath),
		DBPath:            GetEnvString("CURATOR_DB_PATH", DefaultDBPath),
		ServerHost:        GetEnvString("CURATOR_HOST", DefaultServerHost),
		ServerPort:        GetEnvInt("CURATOR_PORT", DefaultServerPort),
		FetchTimeout:      GetEnvDuration("CURATOR_FETCH_TIMEOUT", DefaultFetchTimeout),
		UserAgent:         GetEnvString("CURATOR_USER_AGENT", DefaultUserAgent),
		ScrapeSchedule:    GetEnvString("CURATOR_SCRAPE_SCHEDULE", DefaultScrapeSchedule),
		ScrapeOnStart:     GetEnvBool("CURATOR_SCRAPE_ON_START", false),
		RescoreYieldEvery: GetEnvInt("CURATOR_RESCORE_YIELD_EVERY", DefaultRescoreYieldEvery),
		LLM: LLMConfig{
			Provider: provider,
			Endpoint: GetEnvString("CURATOR_LLM_ENDPOINT", DefaultLLMEndpoint),
			Model:    GetEnvString("CURATOR_LLM_MODEL", model),
			APIKey:   GetEnvString("CURATOR_LLM_API_KEY", ""),
		},
		LogLevel: GetEnvLogLevel("CURATOR_LOG_LEVEL", logLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
