package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/recipeu/agent/pkg/databases"
	"github.com/recipeu/agent/pkg/embedders"
)

// RecipeStore combines embedding, vector search and optional reranking into
// the single retrieval call the pipeline uses.
type RecipeStore struct {
	embedder   embedders.Embedder
	vector     databases.VectorStore
	reranker   *Reranker
	collection string
	log        *slog.Logger
}

func NewRecipeStore(embedder embedders.Embedder, vector databases.VectorStore, reranker *Reranker, collection string, log *slog.Logger) *RecipeStore {
	return &RecipeStore{
		embedder:   embedder,
		vector:     vector,
		reranker:   reranker,
		collection: collection,
		log:        log,
	}
}

// SearchRecipes returns the top-k recipe passages for the query. When a
// reranker is configured, k*3 (capped at 20) candidates are fetched and
// reranked down to k; rerank failures fall back to vector order.
func (s *RecipeStore) SearchRecipes(ctx context.Context, query string, k int) ([]Document, error) {
	searchK := k
	if s.reranker != nil {
		searchK = k * 3
		if searchK > 20 {
			searchK = 20
		}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.vector.Search(ctx, s.collection, vector, searchK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, Document{
			Title:       fieldString(hit.Fields, "title"),
			Content:     fieldString(hit.Fields, "text"),
			CookTime:    fieldString(hit.Fields, "cook_time"),
			Level:       fieldString(hit.Fields, "level"),
			RecipeID:    fieldString(hit.Fields, "recipe_id"),
			Source:      fieldString(hit.Fields, "source"),
			VectorScore: hit.Score,
		})
	}

	if s.reranker == nil || len(docs) == 0 {
		return docs, nil
	}

	reranked, err := s.reranker.Rerank(ctx, query, docs, k)
	if err != nil {
		s.log.Warn("rerank failed, keeping vector order", "error", err)
		if len(docs) > k {
			docs = docs[:k]
		}
		return docs, nil
	}
	return reranked, nil
}

func fieldString(fields map[string]any, key string) string {
	if value, ok := fields[key]; ok {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
