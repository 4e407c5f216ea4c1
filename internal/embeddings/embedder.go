// Package embeddings turns paragraph text into vectors for the search index.
package embeddings

import "context"

// Embedder produces one vector per input text. Paragraphs of a document are
// embedded in a single call so providers can batch them; implementations
// must return vectors in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, used to size the index.
	Dimensions() int

	// Name identifies the provider and model, e.g. "ollama/nomic-embed-text".
	Name() string
}
