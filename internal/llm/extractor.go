package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNilConfig is returned when a nil config is provided.
var ErrNilConfig = errors.New("llm config is nil")

// ErrEmptyResponse is returned when the model returns no usable text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// ErrMissingAPIKey is returned when no API key is available.
var ErrMissingAPIKey = errors.New("api key is missing, save your Gemini API key first")

// ExtractedQuote is one quote as returned by the model. Book is whatever the
// model guessed; callers overwrite it with the uploaded file's title.
type ExtractedQuote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Book   string `json:"book"`
}

// Extractor pulls quotes out of a block of book text.
type Extractor interface {
	ExtractQuotes(ctx context.Context, text string) ([]ExtractedQuote, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, text string) ([]ExtractedQuote, error)

// ExtractQuotes calls f.
func (f ExtractorFunc) ExtractQuotes(ctx context.Context, text string) ([]ExtractedQuote, error) {
	return f(ctx, text)
}

const quotePrompt = `You are an expert literary curator. I will provide you with text from a book.
Your task is to identify and extract the most inspiring, motivational, or profound quotes from this text.

Return the result ONLY as a valid JSON array of objects.
Each object should have:
- "text": The exact quote text.
- "author": The author if you recognize it, otherwise "Unknown".
- "book": "Uploaded Book" (placeholder).

Extract between 1 to 5 quotes depending on the content quality. If the text has no inspiring quotes, return an empty array.
Do not include any markdown formatting (like ` + "```json" + `) in the response, just the raw JSON string.

Text to analyze:
"%s"`

// BuildPrompt returns the extraction instruction for text.
func BuildPrompt(text string) string {
	return fmt.Sprintf(quotePrompt, text)
}
