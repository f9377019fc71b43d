// Package search is the recipe retrieval gateway: query embedding, vector
// search and optional reranking behind one call.
package search

// Document is a retrieved recipe passage, from the vector store or the web.
type Document struct {
	Title       string
	Content     string
	CookTime    string
	Level       string
	RecipeID    string
	Link        string
	Source      string
	VectorScore float32
	RerankScore float32
}
