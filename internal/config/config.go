// Package config holds veritas process configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all veritas configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Inference InferenceConfig `yaml:"inference"`
	Search    SearchConfig    `yaml:"search"`
	Video     VideoConfig     `yaml:"video"`
	Swarm     SwarmConfig     `yaml:"swarm"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	ListenAddr  string   `yaml:"listen_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
}

// InferenceConfig configures the Gemini inference provider.
type InferenceConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// SearchConfig configures the web search adapter.
type SearchConfig struct {
	BaseURL    string `yaml:"base_url"`
	MaxResults int    `yaml:"max_results"`
	MaxRetries int    `yaml:"max_retries"`
	Timeout    string `yaml:"timeout"`
}

// VideoConfig configures video metadata and transcript retrieval.
type VideoConfig struct {
	OEmbedBaseURL    string `yaml:"oembed_base_url"`
	TimedTextBaseURL string `yaml:"timedtext_base_url"`
	TranscriptLimit  int    `yaml:"transcript_limit"`
	Timeout          string `yaml:"timeout"`
}

// SwarmConfig configures orchestration behavior.
type SwarmConfig struct {
	HeartbeatInterval string `yaml:"heartbeat_interval"`
	EventBuffer       int    `yaml:"event_buffer"`
}

// HistoryConfig configures the verdict history store.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
	MaxListed    int    `yaml:"max_listed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:  ":5000",
			CORSOrigins: []string{"*"},
			MaxUploadMB: 8,
		},
		Inference: InferenceConfig{
			Model:   "gemini-1.5-flash",
			Timeout: "60s",
		},
		Search: SearchConfig{
			BaseURL:    "https://lite.duckduckgo.com/lite/",
			MaxResults: 5,
			MaxRetries: 2,
			Timeout:    "15s",
		},
		Video: VideoConfig{
			OEmbedBaseURL:    "https://www.youtube.com/oembed",
			TimedTextBaseURL: "https://www.youtube.com/api/timedtext",
			TranscriptLimit:  2000,
			Timeout:          "10s",
		},
		Swarm: SwarmConfig{
			HeartbeatInterval: "2s",
			EventBuffer:       32,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "data/veritas.db",
			MaxListed:    50,
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error; defaults plus environment overrides are returned instead.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Inference.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Inference.APIKey = key
	}
	if model := os.Getenv("VERITAS_MODEL"); model != "" {
		c.Inference.Model = model
	}
	if addr := os.Getenv("VERITAS_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if path := os.Getenv("VERITAS_DB"); path != "" {
		c.History.DatabasePath = path
	}
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Inference.APIKey == "" {
		return fmt.Errorf("inference API key not configured (set GOOGLE_API_KEY)")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search max_results must be positive")
	}
	if c.Video.TranscriptLimit <= 0 {
		return fmt.Errorf("video transcript_limit must be positive")
	}
	return nil
}

// GetInferenceTimeout returns the inference timeout as a duration.
func (c *Config) GetInferenceTimeout() time.Duration {
	d, err := time.ParseDuration(c.Inference.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetSearchTimeout returns the search timeout as a duration.
func (c *Config) GetSearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetVideoTimeout returns the video provider timeout as a duration.
func (c *Config) GetVideoTimeout() time.Duration {
	d, err := time.ParseDuration(c.Video.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetHeartbeatInterval returns the stream heartbeat interval as a duration.
func (c *Config) GetHeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.Swarm.HeartbeatInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}
