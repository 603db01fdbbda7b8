// Package config assembles settings from defaults, an optional YAML file and
// the environment, in that order of increasing precedence. Command-line
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/readingdna/readingdna/internal/search"
	"github.com/readingdna/readingdna/internal/storage"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Generation GenerationConfig `yaml:"generation"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Search     SearchConfig     `yaml:"search"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	// UploadDir defaults to <data dir>/uploads
	UploadDir   string `yaml:"upload_dir"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
	// StaticDir holds a built client; empty serves the API only
	StaticDir string `yaml:"static_dir"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

type GenerationConfig struct {
	Provider string `yaml:"provider"`
	// Model overrides the selected provider's default model
	Model                       string `yaml:"model"`
	InFlight                    string `yaml:"in_flight"`
	RecommendationsPreferShared bool   `yaml:"recommendations_prefer_shared"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Ollama    ProviderConfig `yaml:"ollama"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

type SearchConfig struct {
	Backend   string        `yaml:"backend"`
	RemoteURL string        `yaml:"remote_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	PerHour int  `yaml:"per_hour"`
	PerDay  int  `yaml:"per_day"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	BackendFile   = "file"
	BackendBadger = "badger"

	SearchLocal  = "local"
	SearchRemote = "remote"
)

var providerNames = []string{"openai", "gemini", "ollama", "anthropic"}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "5000",
			CORSOrigins: []string{"*"},
			MaxUploadMB: 10,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			DataDir: "./data",
		},
		Generation: GenerationConfig{
			Provider:                    "openai",
			InFlight:                    string(storage.InFlightOff),
			RecommendationsPreferShared: true,
		},
		Providers: ProvidersConfig{
			OpenAI:    ProviderConfig{Model: "gpt-4o"},
			Gemini:    ProviderConfig{Model: "gemini-2.0-flash"},
			Ollama:    ProviderConfig{BaseURL: "http://localhost:11434", Model: "mistral-small3.2:24b"},
			Anthropic: ProviderConfig{Model: "claude-sonnet-4-5"},
		},
		Search: SearchConfig{
			Backend:   SearchLocal,
			RemoteURL: search.DefaultRemoteURL,
			Timeout:   10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			PerHour: 10,
			PerDay:  50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (skipped when empty) over the defaults, then the
// environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Server.Port)
	str("STATIC_DIR", &c.Server.StaticDir)
	str("DATA_DIR", &c.Storage.DataDir)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("GENERATION_PROVIDER", &c.Generation.Provider)
	str("GENERATION_MODEL", &c.Generation.Model)
	str("IN_FLIGHT_MODE", &c.Generation.InFlight)

	str("OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.Providers.OpenAI.Model)
	str("OPENAI_BASE_URL", &c.Providers.OpenAI.BaseURL)
	str("GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Providers.Gemini.Model)
	str("OLLAMA_HOST", &c.Providers.Ollama.BaseURL)
	str("OLLAMA_URL", &c.Providers.Ollama.BaseURL)
	str("OLLAMA_MODEL", &c.Providers.Ollama.Model)
	str("ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	str("ANTHROPIC_MODEL", &c.Providers.Anthropic.Model)

	str("SEARCH_BACKEND", &c.Search.Backend)
	str("SEARCH_REMOTE_URL", &c.Search.RemoteURL)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("RATE_LIMIT_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_ENABLED %q: %w", v, err)
		}
		c.RateLimit.Enabled = enabled
	}
	return nil
}

// Validate rejects unknown enum values and unusable limits
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port must not be empty"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("max upload size must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("data directory must not be empty"))
	}
	switch c.Storage.Backend {
	case BackendFile, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("unsupported storage backend: %q (supported: file, badger)", c.Storage.Backend))
	}
	if !slices.Contains(providerNames, c.Generation.Provider) {
		errs = append(errs, fmt.Errorf("unsupported provider: %q (supported: %s)", c.Generation.Provider, strings.Join(providerNames, ", ")))
	}
	if _, err := storage.ParseInFlightMode(c.Generation.InFlight); err != nil {
		errs = append(errs, err)
	}
	switch c.Search.Backend {
	case SearchLocal, SearchRemote:
	default:
		errs = append(errs, fmt.Errorf("unsupported search backend: %q (supported: local, remote)", c.Search.Backend))
	}
	if c.RateLimit.Enabled && (c.RateLimit.PerHour <= 0 || c.RateLimit.PerDay <= 0) {
		errs = append(errs, fmt.Errorf("rate limits must be positive, got %d/hour and %d/day", c.RateLimit.PerHour, c.RateLimit.PerDay))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unsupported log level: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format: %q (supported: text, json)", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Provider returns the settings of the selected provider with the model
// override applied
func (c *Config) Provider() ProviderConfig {
	var p ProviderConfig
	switch c.Generation.Provider {
	case "openai":
		p = c.Providers.OpenAI
	case "gemini":
		p = c.Providers.Gemini
	case "ollama":
		p = c.Providers.Ollama
	case "anthropic":
		p = c.Providers.Anthropic
	}
	if c.Generation.Model != "" {
		p.Model = c.Generation.Model
	}
	return p
}

// UploadDir resolves the directory multipart uploads are spooled to
func (c *Config) UploadDir() string {
	if c.Server.UploadDir != "" {
		return c.Server.UploadDir
	}
	return filepath.Join(c.Storage.DataDir, "uploads")
}
