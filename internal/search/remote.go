package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultRemoteURL = "https://openlibrary.org"

// RemoteSource queries the Open Library search API. Results depend on a
// dataset outside our control and may differ between calls.
type RemoteSource struct {
	BaseURL    string
	httpClient *http.Client
}

func NewRemoteSource(baseURL string, timeout time.Duration) *RemoteSource {
	if baseURL == "" {
		baseURL = DefaultRemoteURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *RemoteSource) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{}
	params.Set(string(q.Field), q.Text)
	params.Set("fields", "title,author_name")
	// over-fetch; the index drops docs that only matched on other fields
	params.Set("limit", strconv.Itoa(q.Limit*3))

	searchURL := fmt.Sprintf("%s/search.json?%s", r.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search Open Library: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("Open Library returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp struct {
		Docs []struct {
			Title      string   `json:"title"`
			AuthorName []string `json:"author_name"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode Open Library response: %w", err)
	}

	results := make([]Result, 0, len(searchResp.Docs))
	for _, doc := range searchResp.Docs {
		results = append(results, Result{
			Title:  doc.Title,
			Author: strings.Join(doc.AuthorName, ", "),
		})
	}
	return results, nil
}
