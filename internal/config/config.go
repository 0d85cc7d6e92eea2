// Package config loads settings from .env, an optional config.yaml and
// SKYDIORAMA_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Port        string        `mapstructure:"port"`
	LogMode     string        `mapstructure:"log_mode"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// RefreshInterval controls how often stale weather is refetched in the background.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	SearchDebounce  time.Duration `mapstructure:"search_debounce"`
	// GeneratePerMinute limits diorama generations per client on the HTTP API.
	GeneratePerMinute int `mapstructure:"generate_per_minute"`

	Weather   EndpointConfig  `mapstructure:"weather"`
	Geocoding EndpointConfig  `mapstructure:"geocoding"`
	Reverse   ReverseConfig   `mapstructure:"reverse"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`

	// DotEnvErr records why .env was not loaded, for logging once a logger exists.
	DotEnvErr error `mapstructure:"-"`
}

type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type ReverseConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	APIKey        string  `mapstructure:"api_key"`
	GoogleAPIKey  string  `mapstructure:"google_api_key"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type GeminiConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	// APIKey seeds the credential when none has been saved yet.
	APIKey string `mapstructure:"api_key"`
}

// AnthropicConfig enables alt-text for generated dioramas when APIKey is set.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type StorageConfig struct {
	// Backend is one of memory, file or redis.
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Load reads configuration with sensible defaults.
func Load() (*AppConfig, error) {
	dotEnvErr := godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SKYDIORAMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by the upstream SDKs and hosting platforms.
	_ = v.BindEnv("port", "SKYDIORAMA_PORT", "PORT")
	_ = v.BindEnv("gemini.api_key", "SKYDIORAMA_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("anthropic.api_key", "SKYDIORAMA_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("reverse.google_api_key", "SKYDIORAMA_REVERSE_GOOGLE_API_KEY", "GEOCODER_API_KEY")
	_ = v.BindEnv("redis.addr", "SKYDIORAMA_REDIS_ADDR", "REDIS_ADDR")

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.DotEnvErr = dotEnvErr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("http_timeout", "60s")
	v.SetDefault("refresh_interval", "15m")
	v.SetDefault("stale_after", "30m")
	v.SetDefault("search_debounce", "300ms")
	v.SetDefault("generate_per_minute", 5)

	v.SetDefault("weather.base_url", "https://api.open-meteo.com/v1")
	v.SetDefault("geocoding.base_url", "https://geocoding-api.open-meteo.com/v1")
	v.SetDefault("reverse.base_url", "https://geocode.maps.co")
	v.SetDefault("reverse.api_key", "")
	v.SetDefault("reverse.google_api_key", "")
	v.SetDefault("reverse.rate_per_second", 1.0)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-3-haiku-20240307")
	v.SetDefault("anthropic.max_tokens", 120)

	v.SetDefault("storage.backend", BackendFile)
	if dir, err := configDir(); err == nil {
		v.SetDefault("storage.data_dir", filepath.Join(dir, "data"))
	} else {
		v.SetDefault("storage.data_dir", "data")
	}
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.namespace", "skydiorama:")
}

// Validate checks durations and the storage backend.
func (c *AppConfig) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("stale_after must be positive")
	}
	if c.SearchDebounce <= 0 {
		return fmt.Errorf("search_debounce must be positive")
	}
	if c.GeneratePerMinute < 0 {
		return fmt.Errorf("generate_per_minute must not be negative")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must not be negative")
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// configDir returns $SKYDIORAMA_CONFIG_DIR, $XDG_CONFIG_HOME/sky-diorama or ~/.config/sky-diorama.
func configDir() (string, error) {
	if dir := os.Getenv("SKYDIORAMA_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sky-diorama"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sky-diorama"), nil
}
