package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if cfg.Server.Port != "5000" || cfg.Storage.DataDir != "./data" || cfg.Server.MaxUploadMB != 10 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.RateLimit.PerHour != 10 || cfg.RateLimit.PerDay != 50 {
		t.Errorf("Unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if !cfg.Generation.RecommendationsPreferShared {
		t.Error("Expected recommendations to prefer shared data by default")
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
server:
  port: "7000"
storage:
  backend: badger
  data_dir: /var/lib/readingdna
generation:
  provider: ollama
search:
  timeout: 3s
`
	if err := os.WriteFile(path, []byte(yamlData), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OLLAMA_URL", "")
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("PORT", "8080")
	t.Setenv("OLLAMA_MODEL", "llama3.1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected env to override file port, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendBadger || cfg.Storage.DataDir != "/var/lib/readingdna" {
		t.Errorf("Expected file values, got %+v", cfg.Storage)
	}
	if cfg.Search.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %s", cfg.Search.Timeout)
	}
	if cfg.Server.MaxUploadMB != 10 {
		t.Errorf("Expected default to survive partial file, got %d", cfg.Server.MaxUploadMB)
	}
	if p := cfg.Provider(); p.Model != "llama3.1" || p.BaseURL != "http://localhost:11434" {
		t.Errorf("Unexpected provider settings: %+v", p)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(*Config) bool
	}{
		{
			name:  "OLLAMA_URL wins over OLLAMA_HOST",
			env:   map[string]string{"OLLAMA_HOST": "http://host:1", "OLLAMA_URL": "http://url:2"},
			check: func(c *Config) bool { return c.Providers.Ollama.BaseURL == "http://url:2" },
		},
		{
			name:  "OLLAMA_HOST fallback",
			env:   map[string]string{"OLLAMA_HOST": "http://host:1"},
			check: func(c *Config) bool { return c.Providers.Ollama.BaseURL == "http://host:1" },
		},
		{
			name:  "empty value ignored",
			env:   map[string]string{"PORT": ""},
			check: func(c *Config) bool { return c.Server.Port == "5000" },
		},
		{
			name:  "rate limit toggle",
			env:   map[string]string{"RATE_LIMIT_ENABLED": "false"},
			check: func(c *Config) bool { return !c.RateLimit.Enabled },
		},
		{
			name:  "model override",
			env:   map[string]string{"GENERATION_PROVIDER": "anthropic", "GENERATION_MODEL": "custom"},
			check: func(c *Config) bool { return c.Provider().Model == "custom" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.applyEnv(envMap(tt.env)); err != nil {
				t.Fatalf("applyEnv failed: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("Unexpected config: %+v", cfg)
			}
		})
	}

	if err := Default().applyEnv(envMap(map[string]string{"RATE_LIMIT_ENABLED": "maybe"})); err == nil {
		t.Error("Expected error for unparseable bool")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"storage backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage backend"},
		{"provider", func(c *Config) { c.Generation.Provider = "mistral" }, "provider"},
		{"in-flight mode", func(c *Config) { c.Generation.InFlight = "maybe" }, "in-flight"},
		{"search backend", func(c *Config) { c.Search.Backend = "bleve" }, "search backend"},
		{"rate limits", func(c *Config) { c.RateLimit.PerHour = 0 }, "rate limits"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log level"},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.PerHour = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected disabled rate limit to skip limit checks, got %v", err)
	}
}

func TestUploadDir(t *testing.T) {
	cfg := Default()
	if got := cfg.UploadDir(); got != filepath.Join("data", "uploads") {
		t.Errorf("Expected data/uploads, got %s", got)
	}
	cfg.Server.UploadDir = "/tmp/up"
	if got := cfg.UploadDir(); got != "/tmp/up" {
		t.Errorf("Expected explicit upload dir, got %s", got)
	}
}
