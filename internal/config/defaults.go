package config

import "runtime"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Features.Pooling == "" {
		cfg.Features.Pooling = "mean"
	}
	if cfg.Features.Normalization == "" {
		cfg.Features.Normalization = "minmax"
	}
	if cfg.Features.NewMin == 0 && cfg.Features.NewMax == 0 {
		cfg.Features.NewMax = 1.0
	}
	if cfg.Features.MaxDecimalExponent == 0 {
		cfg.Features.MaxDecimalExponent = 308
	}
	if cfg.Features.Dimensions == 0 {
		cfg.Features.Dimensions = 768
	}
	if cfg.Features.Workers <= 0 {
		cfg.Features.Workers = runtime.NumCPU()
	}
	if cfg.Features.BatchSize <= 0 {
		cfg.Features.BatchSize = 64
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = cfg.Features.Dimensions
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 100
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	// Reload defaults to true when unset (nil).
	if cfg.Watch.Reload == nil {
		t := true
		cfg.Watch.Reload = &t
	}
}
