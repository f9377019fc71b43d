// Package embedders provides the query-embedding gateway used by retrieval.
package embedders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/recipeu/agent/pkg/config"
	"github.com/recipeu/agent/pkg/httpclient"
)

// Embedder turns a query string into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ClovaEmbedder calls the Clova Studio embedding API (bge-m3 style models).
type ClovaEmbedder struct {
	config *config.EmbedderConfig
	client *httpclient.Client
}

func NewClovaEmbedder(cfg *config.EmbedderConfig) (*ClovaEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder api key is required")
	}
	return &ClovaEmbedder{
		config: cfg,
		client: httpclient.New(
			httpclient.WithTimeout(time.Duration(cfg.Timeout) * time.Second),
		),
	}, nil
}

func (e *ClovaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/api-tools/embedding/%s", e.config.BaseURL, e.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	req.Header.Set("X-NCP-CLOVASTUDIO-REQUEST-ID", uuid.NewString())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}

	var parsed struct {
		Status struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"status"`
		Result struct {
			Embedding []float32 `json:"embedding"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if parsed.Status.Code != "" && parsed.Status.Code != "20000" {
		return nil, fmt.Errorf("embedding error %s: %s", parsed.Status.Code, parsed.Status.Message)
	}
	if len(parsed.Result.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return parsed.Result.Embedding, nil
}
