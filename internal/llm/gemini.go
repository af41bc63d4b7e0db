package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/akashicode/quoteshelf/internal/config"
	"github.com/akashicode/quoteshelf/internal/logging"
)

// FallbackModel is used when model discovery fails.
const FallbackModel = "gemini-1.5-flash"

const generateMethod = "generateContent"

// GeminiClient calls the Generative Language REST API.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client

	once     sync.Once
	resolved string
}

// NewGeminiClient creates a client from cfg. apiKey overrides cfg.APIKey when
// set, which is how the stored key reaches the client.
func NewGeminiClient(cfg *config.ProviderConfig, apiKey string) (*GeminiClient, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	base := cfg.BaseURL
	if base == "" {
		base = config.DefaultGeminiBaseURL
	}
	return &GeminiClient{
		baseURL: strings.TrimSuffix(base, "/"),
		apiKey:  apiKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// ModelInfo is one entry of the model listing.
type ModelInfo struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type listModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Model returns the model used for generation, resolving it on first use.
func (c *GeminiClient) Model(ctx context.Context) string {
	c.once.Do(func() {
		if c.model != "" {
			c.resolved = c.model
			return
		}
		name, err := c.discoverModel(ctx)
		if err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "model discovery failed, using fallback",
				slog.String("model", FallbackModel),
				slog.Any("error", err))
			name = FallbackModel
		}
		c.resolved = name
	})
	return c.resolved
}

func (c *GeminiClient) discoverModel(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/models"), nil)
	if err != nil {
		return "", fmt.Errorf("create list models request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("list models: %w", err)
	}

	var resp listModelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal models: %w", err)
	}

	usable := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		for _, method := range m.SupportedGenerationMethods {
			if method == generateMethod {
				usable = append(usable, m)
				break
			}
		}
	}
	name := SelectModel(usable)
	if name == "" {
		return "", errors.New("no text generation models found for this key")
	}
	return name, nil
}

// SelectModel picks by priority: a name containing "flash", then one with
// "pro" and "1.5", then any "pro", then the first. The "models/" prefix is
// removed. It returns "" for an empty list.
func SelectModel(models []ModelInfo) string {
	if len(models) == 0 {
		return ""
	}
	preds := []func(string) bool{
		func(n string) bool { return strings.Contains(n, "flash") },
		func(n string) bool { return strings.Contains(n, "pro") && strings.Contains(n, "1.5") },
		func(n string) bool { return strings.Contains(n, "pro") },
	}
	pick := models[0].Name
	for _, match := range preds {
		found := false
		for _, m := range models {
			if match(m.Name) {
				pick, found = m.Name, true
				break
			}
		}
		if found {
			break
		}
	}
	return strings.TrimPrefix(pick, "models/")
}

// ExtractQuotes sends one chunk of text and parses the quote array from the
// first candidate.
func (c *GeminiClient) ExtractQuotes(ctx context.Context, text string) ([]ExtractedQuote, error) {
	raw, err := c.Generate(ctx, BuildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("extract quotes: %w", err)
	}
	quotes, err := parseQuotes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse quotes response: %w", err)
	}
	return quotes, nil
}

// Generate sends a single-text prompt and returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.Model(ctx)

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	path := "/models/" + url.PathEscape(model) + ":" + generateMethod
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal generate response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no quotes generated (blocked by safety filters?), try another book")
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", ErrEmptyResponse
	}
	return parts[0].Text, nil
}

func (c *GeminiClient) endpoint(path string) string {
	return c.baseURL + path + "?key=" + url.QueryEscape(c.apiKey)
}

// do executes req and returns the body of a 2xx response. Other statuses become
// an APIError carrying the provider's message when one is present.
func (c *GeminiClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb apiErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != nil {
			apiErr.Message = eb.Error.Message
		}
		return nil, apiErr
	}
	return body, nil
}

// APIError is a non-success response from the model provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("failed to fetch from Gemini API (status %d)", e.StatusCode)
}

// redactKey keeps the API key, which travels in the query string, out of
// transport error messages.
func redactKey(err error, key string) error {
	msg := err.Error()
	if key == "" || !strings.Contains(msg, key) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, key, "REDACTED"))
}
