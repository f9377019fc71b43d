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

// naverSearch queries the Naver blog search API.
type naverSearch struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

func newNaverSearch(cfg *config.WebSearchConfig) (*naverSearch, error) {
	if cfg.NaverClientID == "" || cfg.NaverClientSecret == "" {
		return nil, fmt.Errorf("naver client id and secret are required")
	}
	return &naverSearch{
		clientID:     cfg.NaverClientID,
		clientSecret: cfg.NaverClientSecret,
		client:       &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *naverSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Document, error) {
	display := maxResults * 2
	if display > 10 {
		display = 10
	}

	params := url.Values{}
	params.Set("query", query+" 레시피 재료")
	params.Set("display", strconv.Itoa(display))
	params.Set("sort", "sim")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://openapi.naver.com/v1/search/blog.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create naver request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", s.clientID)
	req.Header.Set("X-Naver-Client-Secret", s.clientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver search failed: %w", err)
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
		Items []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Link        string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse naver response: %w", err)
	}

	items := parsed.Items
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	docs := make([]search.Document, 0, len(items))
	for i, item := range items {
		title := cleanHTML(item.Title)
		description := cleanHTML(item.Description)
		docs = append(docs, search.Document{
			Title:   title,
			Content: formatSnippet(i+1, title, description, item.Link),
			Link:    item.Link,
			Source:  "naver_blog",
		})
	}
	return docs, nil
}
