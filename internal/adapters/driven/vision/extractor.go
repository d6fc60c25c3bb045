// Package vision provides model-backed enrichment adapters built on an
// OpenAI-compatible API: filename metadata extraction via structured
// outputs and image tagging via a vision-capable chat model.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.FilenameExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultExtractorModel   = "gpt-4o-mini"
	DefaultExtractorTimeout = 120 * time.Second
)

const extractorInstructions = `You extract structured metadata from video file paths.
Given a file path, identify performer or actor names, the series or site the video
belongs to, the scene name, and any descriptive tags encoded in the path. Use empty
values for anything the path does not state. Do not invent information.`

// ExtractorConfig holds configuration for the filename extractor.
type ExtractorConfig struct {
	// APIKey is the API key. May be empty for local servers.
	APIKey string

	// BaseURL overrides the API base URL for compatible local servers.
	BaseURL string

	// Model is the model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Extractor extracts filename metadata using a language model with
// strict JSON schema output.
type Extractor struct {
	client openai.Client
	model  string
}

// filenameMetadataSchema is reflected once at init.
var filenameMetadataSchema = generateSchema[domain.FilenameMetadata]()

// NewExtractor creates a filename extractor.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.Model == "" {
		cfg.Model = DefaultExtractorModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultExtractorTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Extractor{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Extract parses structured metadata out of a video file path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.FilenameMetadata, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "FilenameMetadata",
			Schema:      filenameMetadataSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Metadata extracted from a video file path"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           e.model,
		MaxOutputTokens: openai.Int(500),
		Instructions:    openai.String(extractorInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(path, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := e.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %q: %v", domain.ErrInference, path, err)
	}

	var meta domain.FilenameMetadata
	if err := json.Unmarshal([]byte(resp.OutputText()), &meta); err != nil {
		return nil, fmt.Errorf("%w: unmarshal extraction: %v", domain.ErrInference, err)
	}

	meta.Series = strings.TrimSpace(meta.Series)
	meta.SceneName = strings.TrimSpace(meta.SceneName)
	return &meta, nil
}
