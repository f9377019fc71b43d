// Package websearch provides the web fallback used when vector retrieval
// misses: Naver blog search, Google custom search and Serper.dev behind one
// interface. Quota and API failures come back as placeholder documents so
// the pipeline degrades instead of failing.
package websearch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/recipeu/agent/pkg/config"
	"github.com/recipeu/agent/pkg/search"
)

// Service runs a web search and returns formatted snippet documents.
type Service interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Document, error)
}

// New selects the engine configured under web_search.engine.
func New(cfg *config.WebSearchConfig) (Service, error) {
	switch strings.ToLower(cfg.Engine) {
	case "naver":
		return newNaverSearch(cfg)
	case "google":
		return newGoogleSearch(cfg)
	case "serper":
		return newSerperSearch(cfg)
	default:
		return nil, fmt.Errorf("unsupported web search engine: %s", cfg.Engine)
	}
}

var htmlTagPattern = regexp.MustCompile(`<[^<]+?>`)

func cleanHTML(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, "")
	replacer := strings.NewReplacer(
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(text)
}

func formatSnippet(index int, title, snippet, link string) string {
	return fmt.Sprintf("[검색 결과 %d]\n제목: %s\n\n내용:\n%s\n\n링크: %s", index, title, snippet, link)
}

// errorDocument is the degraded result for quota/API failures.
func errorDocument(content, source string) []search.Document {
	return []search.Document{{Content: content, Source: source}}
}
