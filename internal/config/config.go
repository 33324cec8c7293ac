// Package config loads the interview service configuration from the
// environment and command-line flags.
package config

import "time"

const (
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
	BackendGrok      = "grok"
	BackendOpenAI    = "openai"
	BackendAzure     = "azure"
)

// Config holds application configuration
type Config struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	Provider         string        `mapstructure:"provider" validate:"oneof=openai anthropic ollama grok azure"`
	ProviderAPIKey   string        `mapstructure:"provider_api_key"`
	ProviderModel    string        `mapstructure:"provider_model"` // e.g. "llama3:latest" for ollama
	ProviderEndpoint string        `mapstructure:"provider_endpoint" validate:"omitempty,url"`
	ProviderTimeout  time.Duration `mapstructure:"provider_timeout" validate:"gt=0"`

	MaxQuestions int `mapstructure:"max_questions" validate:"min=1"`

	StoreDSN  string        `mapstructure:"store_dsn" validate:"store_dsn"`
	CacheSize int           `mapstructure:"cache_size" validate:"min=1"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`

	UploadDir string `mapstructure:"upload_dir" validate:"required"`
	LogDir    string `mapstructure:"log_dir" validate:"required"`
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Debug     bool   `mapstructure:"debug"`
}

var defaults = map[string]any{
	"port":              5001,
	"provider":          BackendOpenAI,
	"provider_api_key":  "",
	"provider_model":    "",
	"provider_endpoint": "",
	"provider_timeout":  30 * time.Second,
	"max_questions":     3,
	"store_dsn":         "sqlite://interview.db",
	"cache_size":        1024,
	"cache_ttl":         2 * time.Hour,
	"upload_dir":        "uploads",
	"log_dir":           "logs",
	"log_level":         "info",
	"debug":             false,
}
