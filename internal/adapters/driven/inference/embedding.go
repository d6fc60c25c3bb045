// Package inference provides adapters for text-embeddings-inference
// style HTTP model servers: batch embedding and cross-encoder reranking.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultEmbedBaseURL    = "http://localhost:8080"
	DefaultEmbedTimeout    = 60 * time.Second
	DefaultEmbedDimensions = 768
	DefaultEmbedRateLimit  = 4 // requests per second
)

// EmbedConfig holds configuration for the embedding service.
type EmbedConfig struct {
	// BaseURL is the embedding server base URL (default: http://localhost:8080).
	BaseURL string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// RateLimit caps requests per second (default: 4).
	RateLimit rate.Limit
}

// EmbeddingService generates embeddings via a TEI-compatible server.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	dimensions int
	limiter    *rate.Limiter
}

// embedRequest is the /embed request format.
type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg EmbedConfig) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultEmbedBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultEmbedTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultEmbedDimensions
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultEmbedRateLimit
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		dimensions: cfg.Dimensions,
		limiter:    rate.NewLimiter(cfg.RateLimit, 1),
	}
}

// EmbedBatch generates one embedding per input text, position-parallel.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embed",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", domain.ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: embed server status %d", domain.ErrInference, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: embed server status %d: %s", domain.ErrInference, resp.StatusCode, string(body))
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrInference, len(embeddings), len(texts))
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}
