package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recipeu/agent/pkg/config"
	"github.com/recipeu/agent/pkg/httpclient"
)

const (
	rerankDocLimit    = 2000 // chars per document sent to the reranker
	rerankMaxTokens   = 1024
	rerankRequestID   = "recipe-rag-rerank"
	rerankRequestPath = "/v1/api-tools/reranker"
)

// Reranker reorders candidate documents against the query via the Clova
// Studio reranker API.
type Reranker struct {
	config *config.RerankConfig
	client *httpclient.Client
}

func NewReranker(cfg *config.RerankConfig) (*Reranker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("rerank api key is required")
	}
	return &Reranker{
		config: cfg,
		client: httpclient.New(httpclient.WithTimeout(10 * time.Second)),
	}, nil
}

type rerankDocument struct {
	ID  string `json:"id"`
	Doc string `json:"doc"`
}

type rerankRequest struct {
	Documents []rerankDocument `json:"documents"`
	Query     string           `json:"query"`
	MaxTokens int              `json:"maxTokens"`
}

type rerankResponse struct {
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Result struct {
		TopPassages []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"topPassages"`
	} `json:"result"`
}

// Rerank returns up to topN documents in reranked order. Documents keep
// their index identity through synthetic "docN" ids.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []Document, topN int) ([]Document, error) {
	candidates := make([]rerankDocument, len(docs))
	for i, doc := range docs {
		content := doc.Content
		if runes := []rune(content); len(runes) > rerankDocLimit {
			content = string(runes[:rerankDocLimit])
		}
		candidates[i] = rerankDocument{ID: fmt.Sprintf("doc%d", i), Doc: content}
	}

	body, err := json.Marshal(rerankRequest{
		Documents: candidates,
		Query:     query,
		MaxTokens: rerankMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.config.BaseURL+rerankRequestPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	req.Header.Set("X-NCP-CLOVASTUDIO-REQUEST-ID", rerankRequestID)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rerank response: %w", err)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}
	if parsed.Status.Code != "20000" {
		return nil, fmt.Errorf("rerank error %s: %s", parsed.Status.Code, parsed.Status.Message)
	}

	reranked := make([]Document, 0, topN)
	for _, passage := range parsed.Result.TopPassages {
		if len(reranked) >= topN {
			break
		}
		var idx int
		if _, err := fmt.Sscanf(passage.ID, "doc%d", &idx); err != nil {
			continue
		}
		if idx < 0 || idx >= len(docs) {
			continue
		}
		doc := docs[idx]
		doc.RerankScore = float32(passage.Score)
		reranked = append(reranked, doc)
	}
	if len(reranked) == 0 {
		return nil, fmt.Errorf("rerank returned no usable passages")
	}
	return reranked, nil
}
