// Package config provides configuration loading and structs for the Bunrui server and CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Features  FeaturesConfig  `yaml:"features"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// FeaturesConfig selects how token matrices become feature vectors.
type FeaturesConfig struct {
	Pooling       string `yaml:"pooling"`       // max | mean
	Normalization string `yaml:"normalization"` // l1 | zscore | minmax | decimal
	// MinMax target range. Both zero means [0, 1].
	NewMin             float64 `yaml:"new_min"`
	NewMax             float64 `yaml:"new_max"`
	MaxDecimalExponent int     `yaml:"max_decimal_exponent"`
	AllowNonFinite     bool    `yaml:"allow_non_finite"`
	// Dimensions, when positive, is enforced on every pooled vector.
	Dimensions int `yaml:"dimensions"`
	Workers    int `yaml:"workers"`
	BatchSize  int `yaml:"batch_size"`
}

// EmbeddingConfig holds settings for the token embedder that feeds the pipeline.
type EmbeddingConfig struct {
	Dimensions int `yaml:"dimensions"`
	MaxTokens  int `yaml:"max_tokens"`
	CacheSize  int `yaml:"cache_size"`
}

// WatchConfig controls reloading of the config file while the server runs.
type WatchConfig struct {
	Reload *bool `yaml:"reload"`
}

// ReloadOrDefault returns whether to reload on config change; defaults to true when unset.
func (w *WatchConfig) ReloadOrDefault() bool {
	if w.Reload != nil {
		return *w.Reload
	}
	return true
}

// Load reads and parses the config file at path and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
