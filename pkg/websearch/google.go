package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/recipeu/agent/pkg/config"
	"github.com/recipeu/agent/pkg/search"
)

// googleSearch queries the Google custom search API.
type googleSearch struct {
	apiKey   string
	engineID string
	client   *http.Client
}

func newGoogleSearch(cfg *config.WebSearchConfig) (*googleSearch, error) {
	if cfg.GoogleAPIKey == "" || cfg.GoogleSearchEngine == "" {
		return nil, fmt.Errorf("google api key and search engine id are required")
	}
	return &googleSearch{
		apiKey:   cfg.GoogleAPIKey,
		engineID: cfg.GoogleSearchEngine,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *googleSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Document, error) {
	num := maxResults
	if num > 10 {
		num = 10
	}

	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.engineID)
	params.Set("q", query+" 레시피 만드는법")
	params.Set("num", strconv.Itoa(num))
	params.Set("lr", "lang_ko")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.googleapis.com/customsearch/v1?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create google request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorDocument(fmt.Sprintf("검색 중 오류: %d", resp.StatusCode), "api_error"), nil
	}

	var parsed struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse google response: %w", err)
	}

	docs := make([]search.Document, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		docs = append(docs, search.Document{
			Title:   item.Title,
			Content: formatSnippet(i+1, item.Title, item.Snippet, item.Link),
			Link:    item.Link,
			Source:  "google_search",
		})
	}
	return docs, nil
}
