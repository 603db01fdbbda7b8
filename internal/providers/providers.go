package providers

import (
	"context"
	"errors"
)

// Config represents the configuration for a single generation call
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// JSON asks the provider to constrain its output to a JSON document
	JSON bool
}

// Provider defines the interface for a text-generation provider
type Provider interface {
	Name() string
	Generate(ctx context.Context, config Config) (string, error)
}

// ErrMissingAPIKey is returned by providers that need a key and were built without one
var ErrMissingAPIKey = errors.New("API key not configured")
