package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebSearchConfig points at an Exa-like search API — grounded on the
// reference implementation's exa_client.py, which issues a single POST
// with an API-key header and a JSON query body.
type WebSearchConfig struct {
	BaseURL string
	APIKey  string
}

type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type searchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// WebSearch implements Engine.WebSearch.
func (e *LocalEngine) WebSearch(ctx context.Context, query string) ([]SearchResult, error) {
	payload, err := json.Marshal(searchRequest{Query: query, NumResults: 5})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.webSearch.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.webSearch.APIKey)

	client := &http.Client{Timeout: 20 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("malformed search response: %w", err)
	}
	return parsed.Results, nil
}
