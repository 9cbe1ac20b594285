// Package openai implements entity extraction with OpenAI chat completions.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/fwojciec/entrel"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4-1106-preview"

// Ensure Extractor implements entrel.Extractor at compile time.
var _ entrel.Extractor = (*Extractor)(nil)

// Extractor implements entrel.Extractor using the OpenAI chat completions
// API in JSON mode.
type Extractor struct {
	client openai.Client
	model  string
}

// Option configures an Extractor.
type Option func(*config)

type config struct {
	model   string
	options []option.RequestOption
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAPIKey sets the API key. Without it the client reads OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *config) {
		if key != "" {
			c.options = append(c.options, option.WithAPIKey(key))
		}
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.options = append(c.options, option.WithBaseURL(url))
	}
}

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.options = append(c.options, option.WithHTTPClient(client))
	}
}

// NewExtractor creates a new Extractor. The SDK's automatic retries are
// disabled so each extraction is exactly one request.
func NewExtractor(opts ...Option) *Extractor {
	cfg := &config{
		model:   DefaultModel,
		options: []option.RequestOption{option.WithMaxRetries(0)},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Extractor{
		client: openai.NewClient(cfg.options...),
		model:  cfg.model,
	}
}

// Model returns the model name sent with each request.
func (e *Extractor) Model() string {
	return e.model
}

// Extract asks the model for the entities and relationships in text.
func (e *Extractor) Extract(ctx context.Context, text string) (*entrel.Extraction, error) {
	completion, err := e.client.Chat.Completions.New(ctx, BuildParams(e.model, text))
	if err != nil {
		return nil, apiError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, entrel.Errorf(entrel.EINTERNAL, "openai returned no choices")
	}

	return entrel.ParseExtraction([]byte(completion.Choices[0].Message.Content))
}

// BuildParams returns the chat completion request for text.
func BuildParams(model, text string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(entrel.SystemPrompt),
			openai.UserMessage(text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0),
	}
}

// apiError maps rate limiting and server failures to EUNAVAILABLE.
func apiError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
		return entrel.Errorf(entrel.EUNAVAILABLE, "openai: %s", apiErr.Error())
	}
	return err
}
