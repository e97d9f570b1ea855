package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultSourcesPath = "./sources.csv"
	DefaultDBPath      = "./curator.db"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultFetchTimeout = 10 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	DefaultLLMProvider = "openai"
	DefaultLLMEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultLLMModel    = "gpt-4o-mini"

	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	DefaultScrapeSchedule    = "" // Empty disables the periodic scrape
	DefaultRescoreYieldEvery = 10

	DefaultLogLevel = "info"
)
