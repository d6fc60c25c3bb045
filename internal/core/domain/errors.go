package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuerySyntax indicates a malformed search query (for example an
	// unterminated quoted string). Surfaced to the caller as a client
	// error; never crashes the service.
	ErrQuerySyntax = errors.New("query syntax error")

	// ErrInference indicates an external inference call (embedding,
	// reranking, tagging) failed or timed out. Batch handlers catch and
	// skip per-item occurrences; an index rebuild aborts on it, leaving
	// the previous index serving.
	ErrInference = errors.New("inference service error")

	// ErrUnknownTaskKind indicates a task carries a kind outside the
	// closed set. Such tasks are failed at claim time without dispatch.
	ErrUnknownTaskKind = errors.New("unknown task kind")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector retrieval is disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankerUnavailable indicates the reranker service is not
	// configured; searches fall back to vector-similarity order.
	ErrRerankerUnavailable = errors.New("reranker service unavailable")
)
