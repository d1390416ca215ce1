// Package llm provides the text-generation engine client used for clip
// ranking, summaries, and social captions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Static errors for text-generation operations.
var (
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("llm: API key is required")
	// ErrEmptyCompletion is returned when the engine returns no usable text.
	ErrEmptyCompletion = errors.New("llm: engine returned an empty completion")
)

// TextGenerator defines the call contract the pipeline has with the
// text-generation engine. The engine's output is untrusted; callers parse
// and filter it defensively.
type TextGenerator interface {
	// Complete sends a single-turn prompt and returns the engine's reply
	// with surrounding whitespace trimmed.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Client is the OpenAI chat-completions implementation of TextGenerator.
type Client struct {
	client openai.Client
	model  string
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL string
}

// WithBaseURL points the client at a custom API endpoint. Useful for
// OpenAI-compatible gateways and for tests.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// NewClient creates a text-generation client. The model defaults to
// gpt-4o-mini when empty.
func NewClient(apiKey, model string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Client{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Complete sends the prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       c.model,
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
