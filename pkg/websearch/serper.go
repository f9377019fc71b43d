package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/recipeu/agent/pkg/config"
	"github.com/recipeu/agent/pkg/search"
)

// serperSearch queries the Serper.dev Google proxy, the default engine.
type serperSearch struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newSerperSearch(cfg *config.WebSearchConfig) (*serperSearch, error) {
	if cfg.SerperAPIKey == "" {
		return nil, fmt.Errorf("serper api key is required")
	}
	return &serperSearch{
		apiKey:  cfg.SerperAPIKey,
		baseURL: "https://google.serper.dev",
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *serperSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Document, error) {
	body, err := json.Marshal(map[string]any{
		"q":   query + " 레시피 재료",
		"gl":  "kr",
		"hl":  "ko",
		"num": maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper search failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return errorDocument("API 호출 제한을 초과했습니다.", "rate_limit"), nil
	default:
		return errorDocument(fmt.Sprintf("검색 중 오류: %d", resp.StatusCode), "api_error"), nil
	}

	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse serper response: %w", err)
	}

	items := parsed.Organic
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	docs := make([]search.Document, 0, len(items))
	for i, item := range items {
		docs = append(docs, search.Document{
			Title:   item.Title,
			Content: formatSnippet(i+1, item.Title, item.Snippet, item.Link),
			Link:    item.Link,
			Source:  "serper_dev",
		})
	}
	return docs, nil
}
