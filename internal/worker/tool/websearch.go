package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// WebSearchTool issues a GET against a configured search backend and
// returns its JSON body, adapted from the same net/http request shape
// the teacher's generic HTTP tool uses (method/url/headers/body),
// narrowed to the one GET-a-query-endpoint case research_* nodes need.
type WebSearchTool struct {
	baseURL string
	client  *http.Client
}

// NewWebSearchTool targets baseURL (a search API endpoint accepting
// ?q=<query>, returning a JSON body). An empty baseURL is valid for
// tests that only exercise MockTool instead.
func NewWebSearchTool(baseURL string) *WebSearchTool {
	return &WebSearchTool{baseURL: baseURL, client: &http.Client{}}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	query, ok := input["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("web_search: query parameter required (string)")
	}
	if t.baseURL == "" {
		return nil, fmt.Errorf("web_search: no search backend configured")
	}

	reqURL := t.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("web_search: build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web_search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("web_search: read response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return map[string]interface{}{"status_code": resp.StatusCode, "raw": string(body)}, nil
	}
	result["status_code"] = resp.StatusCode
	return result, nil
}
