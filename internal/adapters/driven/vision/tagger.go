package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Ensure Tagger implements the interface.
var _ driven.VisionTagger = (*Tagger)(nil)

// Default configuration values.
const (
	DefaultTaggerModel   = "gpt-4o-mini"
	DefaultTaggerTimeout = 120 * time.Second
)

// DefaultTagPrompt asks for a flat comma-separated tag list so the
// response splits without any parsing model.
const DefaultTagPrompt = `Describe this video frame as a list of short, lowercase tags:
subjects, setting, actions, lighting, notable objects. Respond with ONLY the tags,
comma-separated, no other text.`

// TaggerConfig holds configuration for the image tagger.
type TaggerConfig struct {
	// APIKey is the API key. May be empty for local servers.
	APIKey string

	// BaseURL overrides the API base URL for compatible local servers.
	BaseURL string

	// Model is the vision-capable model to use (default: gpt-4o-mini).
	Model string

	// Prompt overrides the default tagging prompt.
	Prompt string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Tagger generates descriptive tags for video frames using a
// vision-capable chat model.
type Tagger struct {
	client openai.Client
	model  string
	prompt string
}

// NewTagger creates an image tagger.
func NewTagger(cfg TaggerConfig) *Tagger {
	if cfg.Model == "" {
		cfg.Model = DefaultTaggerModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultTagPrompt
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTaggerTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Tagger{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		prompt: cfg.Prompt,
	}
}

// TagImage sends the image as a base64 data URL and splits the model's
// comma-separated response into tags.
func (t *Tagger) TagImage(ctx context.Context, imagePath string) ([]string, string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	params := openai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(t.prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	}

	resp, err := t.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, "", fmt.Errorf("%w: tag image: %v", domain.ErrInference, err)
	}
	if len(resp.Choices) == 0 {
		return nil, "", fmt.Errorf("%w: empty tagger response", domain.ErrInference)
	}

	tags := splitTags(resp.Choices[0].Message.Content)
	if len(tags) == 0 {
		return nil, "", fmt.Errorf("%w: no tags in response", domain.ErrInference)
	}
	return tags, t.prompt, nil
}

// splitTags splits a comma-separated response into trimmed, lowercased,
// deduplicated tags.
func splitTags(response string) []string {
	parts := strings.Split(response, ",")
	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.ToLower(strings.TrimSpace(p))
		tag = strings.Trim(tag, ".")
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
