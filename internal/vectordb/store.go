package vectordb

import "context"

// VectorStore stores document paragraphs and searches them by embedding.
type VectorStore interface {
	// AddDocuments adds or updates entries in the store.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search performs a semantic search using the query text.
	Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error)

	// DeleteByDocument removes every entry of the given document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of entries in the store.
	Count() int
}
