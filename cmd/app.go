package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/readingdna/readingdna/internal/analysis"
	"github.com/readingdna/readingdna/internal/anthropic"
	"github.com/readingdna/readingdna/internal/config"
	"github.com/readingdna/readingdna/internal/gemini"
	"github.com/readingdna/readingdna/internal/generation"
	"github.com/readingdna/readingdna/internal/ollama"
	"github.com/readingdna/readingdna/internal/openai"
	"github.com/readingdna/readingdna/internal/providers"
	"github.com/readingdna/readingdna/internal/storage"
)

const lockName = ".readingdna.lock"

// openStore opens the configured backend. A badger store is held under an
// exclusive lock on the data directory for the lifetime of the process;
// the returned close func releases it.
func openStore(cfg *config.Config) (*storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		lock, err := lockDataDir(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		backend, err := storage.NewBadgerBackend(filepath.Join(cfg.Storage.DataDir, "badger"))
		if err != nil {
			_ = lock.Unlock()
			return nil, nil, err
		}
		store := storage.New(backend)
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close store", "err", err)
			}
			if err := lock.Unlock(); err != nil {
				slog.Warn("Failed to release data directory lock", "err", err)
			}
		}, nil
	default:
		backend, err := storage.NewFileBackend(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		store := storage.New(backend)
		return store, func() { _ = store.Close() }, nil
	}
}

func lockDataDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("data directory %s is in use by another process", dir)
	}
	return lock, nil
}

// newProvider builds the configured generation provider
func newProvider(cfg *config.Config) (providers.Provider, string, error) {
	p := cfg.Provider()

	var provider providers.Provider
	switch cfg.Generation.Provider {
	case "openai":
		provider = openai.New(p.APIKey, p.BaseURL)
	case "gemini":
		provider = gemini.New(p.APIKey)
	case "ollama":
		provider = ollama.New(p.BaseURL)
	case "anthropic":
		provider = anthropic.New(p.APIKey, p.BaseURL)
	default:
		return nil, "", fmt.Errorf("unsupported provider: %s", cfg.Generation.Provider)
	}

	if p.APIKey == "" && cfg.Generation.Provider != "ollama" {
		slog.Warn("Provider API key not configured, generation calls will fail", "provider", provider.Name())
	}
	return provider, p.Model, nil
}

func newAnalysis(cfg *config.Config, store *storage.Store) (*analysis.Service, error) {
	provider, model, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	mode, err := storage.ParseInFlightMode(cfg.Generation.InFlight)
	if err != nil {
		return nil, err
	}

	slog.Debug("Generation configured", "provider", provider.Name(), "model", model, "in_flight", mode)
	return analysis.NewService(store, generation.New(provider, model), storage.NewInFlight(mode)), nil
}
