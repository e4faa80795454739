package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the assistant client
type Config struct {
	BaseURL           string        `toml:"base_url" mapstructure:"base_url"`                       // Default backend base URL (persisted endpoint overrides it)
	ProbeTimeout      time.Duration `toml:"probe_timeout" mapstructure:"probe_timeout"`             // Single health probe timeout
	ProbeRetryTimeout time.Duration `toml:"probe_retry_timeout" mapstructure:"probe_retry_timeout"` // Per-attempt timeout when retrying probes (max 8s)
	ProbeMaxRetries   int           `toml:"probe_max_retries" mapstructure:"probe_max_retries"`     // Extra attempts after the first probe
	AskTimeout        time.Duration `toml:"ask_timeout" mapstructure:"ask_timeout"`
	HistoryTimeout    time.Duration `toml:"history_timeout" mapstructure:"history_timeout"`
	Store             string        `toml:"store" mapstructure:"store"`           // file, sqlite, redis or memory
	StorePath         string        `toml:"store_path" mapstructure:"store_path"` // file and sqlite stores
	RedisURL          string        `toml:"redis_url" mapstructure:"redis_url"`
	PromptDirs        []string      `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
	LogLevel          string        `toml:"log_level" mapstructure:"log_level"`
	LogFormat         string        `toml:"log_format" mapstructure:"log_format"`
	MetricsAddr       string        `toml:"metrics_addr" mapstructure:"metrics_addr"` // Empty = metrics endpoint disabled
}

// Defaults and bounds for backend calls.
const (
	DefaultBaseURL         = "http://localhost:8000"
	DefaultProbeTimeout    = 5 * time.Second
	MaxProbeRetryTimeout   = 8 * time.Second
	DefaultProbeMaxRetries = 2
	DefaultAskTimeout      = 30 * time.Second
	DefaultHistoryTimeout  = 10 * time.Second
	DefaultStore           = "file"
	DefaultStateFileName   = "state.toml"
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "console"
)

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(configDir string) *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		ProbeTimeout:      DefaultProbeTimeout,
		ProbeRetryTimeout: MaxProbeRetryTimeout,
		ProbeMaxRetries:   DefaultProbeMaxRetries,
		AskTimeout:        DefaultAskTimeout,
		HistoryTimeout:    DefaultHistoryTimeout,
		Store:             DefaultStore,
		StorePath:         filepath.Join(configDir, DefaultStateFileName),
		RedisURL:          "$LXASSIST_REDIS_URL",
		PromptDirs:        []string{filepath.Join(configDir, "prompts")},
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	redisURL, err := expandEnvVar(config.RedisURL)
	if err != nil {
		return nil, err
	}
	config.RedisURL = redisURL

	if config.StorePath != "" {
		absPath, err := ResolvePath(config.StorePath)
		if err != nil {
			return nil, fmt.Errorf("error resolving store path '%s': %v", config.StorePath, err)
		}
		config.StorePath = absPath
	}

	// Convert prompt directories to absolute paths
	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(promptDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %v", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	config.applyBounds()
	return config, nil
}

// applyBounds fills zero values and clamps timeouts to their allowed range.
func (c *Config) applyBounds() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.ProbeRetryTimeout <= 0 || c.ProbeRetryTimeout > MaxProbeRetryTimeout {
		c.ProbeRetryTimeout = MaxProbeRetryTimeout
	}
	if c.ProbeMaxRetries < 0 {
		c.ProbeMaxRetries = 0
	}
	if c.AskTimeout <= 0 {
		c.AskTimeout = DefaultAskTimeout
	}
	if c.HistoryTimeout <= 0 {
		c.HistoryTimeout = DefaultHistoryTimeout
	}
	if c.Store == "" {
		c.Store = DefaultStore
	}
}
