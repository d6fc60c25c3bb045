package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Callers prefix each input with the preamble matching its role: one
// preamble for documents (symmetric similarity) and one for queries
// (asymmetric retrieval). The service itself is role-agnostic.
//
// Implementations wrap an external inference server; failures surface as
// errors wrapping domain.ErrInference.
type EmbeddingService interface {
	// EmbedBatch generates one fixed-dimension vector per input text.
	// The response is position-parallel with the request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Reranker scores candidate documents against a query with a pairwise
// cross-encoder model. Scores are mutually comparable within one call but
// carry no fixed range.
type Reranker interface {
	// Score returns one relevance score per document, position-parallel
	// with the input; higher is more relevant.
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}
