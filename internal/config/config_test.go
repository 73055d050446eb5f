package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
features:
  pooling: max
  normalization: zscore
  dimensions: 4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Features.Pooling != "max" || cfg.Features.Normalization != "zscore" {
		t.Errorf("unexpected features config: %+v", cfg.Features)
	}
	if cfg.Embedding.Dimensions != 4 {
		t.Errorf("embedding dimensions should follow features dimensions, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_invalidYAML(t *testing.T) {
	if _, err := Parse([]byte("features: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Features.Pooling != "mean" || cfg.Features.Normalization != "minmax" {
		t.Errorf("default laws: got %s/%s", cfg.Features.Pooling, cfg.Features.Normalization)
	}
	if cfg.Features.NewMin != 0 || cfg.Features.NewMax != 1 {
		t.Errorf("default min-max range: got [%f, %f]", cfg.Features.NewMin, cfg.Features.NewMax)
	}
	if cfg.Features.MaxDecimalExponent != 308 {
		t.Errorf("default max exponent: got %d", cfg.Features.MaxDecimalExponent)
	}
	if cfg.Features.Dimensions != 768 {
		t.Errorf("default dimensions: got %d", cfg.Features.Dimensions)
	}
	if cfg.Features.Workers <= 0 || cfg.Features.BatchSize != 64 {
		t.Errorf("default workers/batch: got %d/%d", cfg.Features.Workers, cfg.Features.BatchSize)
	}
	if cfg.Embedding.MaxTokens != 100 || cfg.Embedding.CacheSize != 10000 {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if !cfg.Watch.ReloadOrDefault() {
		t.Error("reload should default to true")
	}
}

func TestApplyDefaults_keepsExplicitRange(t *testing.T) {
	cfg := &Config{Features: FeaturesConfig{NewMin: -1, NewMax: 1}}
	ApplyDefaults(cfg)
	if cfg.Features.NewMin != -1 || cfg.Features.NewMax != 1 {
		t.Errorf("explicit range overwritten: [%f, %f]", cfg.Features.NewMin, cfg.Features.NewMax)
	}
}

func TestWatchConfig_ReloadOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.ReloadOrDefault(); !got {
			t.Errorf("ReloadOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Reload: &f}
		if got := w.ReloadOrDefault(); got {
			t.Errorf("ReloadOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Features.Normalization = "decimal"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Features.Normalization != "decimal" {
		t.Errorf("loaded normalization: got %s", loaded.Features.Normalization)
	}
}
