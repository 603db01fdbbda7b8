package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/readingdna/readingdna/internal/providers"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
	maxTokens      = 4096
)

// Anthropic is a provider for the Anthropic messages API
type Anthropic struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New returns a new Anthropic provider. An empty baseURL selects the public API.
func New(apiKey, baseURL string) *Anthropic {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Anthropic{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Minute},
	}
}

func (a *Anthropic) Name() string {
	return "anthropic"
}

// Generate sends the prompt as a single user message. The messages API has
// no JSON mode, so JSON requests get an instruction appended to the prompt.
func (a *Anthropic) Generate(ctx context.Context, config providers.Config) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("anthropic: %w", providers.ErrMissingAPIKey)
	}

	prompt := config.Prompt
	if config.JSON {
		prompt += "\n\nRespond with the JSON document only, without any surrounding prose."
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":       config.Model,
		"max_tokens":  maxTokens,
		"temperature": config.Temperature,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/messages", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content returned from Anthropic")
	}
	return sb.String(), nil
}
