package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/akashicode/quoteshelf/internal/config"
)

// Client extracts quotes through an OpenAI-compatible chat completion API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI-compatible client from a ProviderConfig.
// apiKey overrides cfg.APIKey when set.
func NewClient(cfg *config.ProviderConfig, apiKey string) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("llm base_url is required")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Complete sends a single user message and returns the assistant response text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractQuotes asks the model for quotes in text using the shared prompt.
func (c *Client) ExtractQuotes(ctx context.Context, text string) ([]ExtractedQuote, error) {
	raw, err := c.Complete(ctx, "", BuildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("extract quotes: %w", err)
	}
	quotes, err := parseQuotes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse quotes response: %w", err)
	}
	return quotes, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// NewExtractor builds the extractor selected by cfg.Provider.
func NewExtractor(cfg *config.ProviderConfig, apiKey string) (Extractor, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := NewClient(cfg, apiKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderGemini, "":
		c, err := NewGeminiClient(cfg, apiKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
