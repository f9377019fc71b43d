// Package databases provides the vector-store adapter used by retrieval.
package databases

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

// SearchResult is one vector-search hit with its payload fields.
type SearchResult struct {
	ID     string
	Score  float32
	Fields map[string]any
}

// VectorStore searches a collection by dense vector.
type VectorStore interface {
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)
	Close() error
}

// MilvusStore talks to Milvus over its REST API.
type MilvusStore struct {
	config *config.VectorConfig
	client *httpclient.Client
}

var recipeOutputFields = []string{"text", "title", "level", "cook_time", "source", "recipe_id"}

func NewMilvusStore(cfg *config.VectorConfig) (*MilvusStore, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("milvus base url is required")
	}
	return &MilvusStore{
		config: cfg,
		client: httpclient.New(
			httpclient.WithTimeout(time.Duration(cfg.Timeout) * time.Second),
		),
	}, nil
}

func (s *MilvusStore) Close() error {
	return nil
}

type milvusSearchRequest struct {
	CollectionName string         `json:"collectionName"`
	Data           [][]float32    `json:"data"`
	AnnsField      string         `json:"annsField"`
	Limit          int            `json:"limit"`
	OutputFields   []string       `json:"outputFields"`
	SearchParams   map[string]any `json:"searchParams,omitempty"`
}

type milvusSearchResponse struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    []map[string]any `json:"data"`
}

// Search runs an ANN search and returns hits in vector order.
// HNSW ef follows the retrieval layer's convention of max(topK*2, 50).
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error) {
	ef := topK * 2
	if ef < 50 {
		ef = 50
	}

	body, err := json.Marshal(milvusSearchRequest{
		CollectionName: collection,
		Data:           [][]float32{vector},
		AnnsField:      "vector",
		Limit:          topK,
		OutputFields:   recipeOutputFields,
		SearchParams: map[string]any{
			"metricType": "L2",
			"params":     map[string]any{"ef": ef},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal milvus request: %w", err)
	}

	url := s.config.BaseURL + "/v2/vectordb/entities/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read milvus response: %w", err)
	}

	var parsed milvusSearchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse milvus response: %w", err)
	}
	if parsed.Code != 0 && parsed.Code != 200 {
		return nil, fmt.Errorf("milvus error %d: %s", parsed.Code, parsed.Message)
	}

	results := make([]SearchResult, 0, len(parsed.Data))
	for _, hit := range parsed.Data {
		result := SearchResult{Fields: make(map[string]any, len(hit))}
		for key, value := range hit {
			switch key {
			case "id":
				result.ID = fmt.Sprintf("%v", value)
			case "distance":
				if f, ok := value.(float64); ok {
					result.Score = float32(f)
				}
			default:
				result.Fields[key] = value
			}
		}
		results = append(results, result)
	}
	return results, nil
}
