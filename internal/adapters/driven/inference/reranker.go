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

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Default configuration values.
const (
	DefaultRerankBaseURL   = "http://localhost:8081"
	DefaultRerankTimeout   = 60 * time.Second
	DefaultRerankRateLimit = 2 // requests per second
)

// RerankConfig holds configuration for the reranker.
type RerankConfig struct {
	// BaseURL is the rerank server base URL (default: http://localhost:8081).
	BaseURL string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// RateLimit caps requests per second (default: 2).
	RateLimit rate.Limit
}

// Reranker scores query/document pairs via a TEI-compatible server.
type Reranker struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// rerankRequest is the /rerank request format.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one entry of the /rerank response. Results arrive
// score-sorted; Index maps each back to its input position.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewReranker creates a new reranker.
func NewReranker(cfg RerankConfig) *Reranker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRerankBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRerankTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRerankRateLimit
	}

	return &Reranker{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(cfg.RateLimit, 1),
	}
}

// Score returns one relevance score per document, position-parallel with
// the input.
func (r *Reranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: documents})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", domain.ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: rerank server status %d", domain.ErrInference, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: rerank server status %d: %s", domain.ErrInference, resp.StatusCode, string(body))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(results) != len(documents) {
		return nil, fmt.Errorf("%w: got %d scores for %d documents", domain.ErrInference, len(results), len(documents))
	}

	scores := make([]float64, len(documents))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, fmt.Errorf("%w: rerank index %d out of range", domain.ErrInference, res.Index)
		}
		scores[res.Index] = res.Score
	}
	return scores, nil
}
