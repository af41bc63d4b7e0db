package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseQuotes decodes the JSON quote array a model returned. Residual markdown
// code fences are removed first; anything else that is not a JSON array of
// quote objects is an error.
func parseQuotes(raw string) ([]ExtractedQuote, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var quotes []ExtractedQuote
	if err := json.Unmarshal([]byte(cleaned), &quotes); err != nil {
		return nil, fmt.Errorf("unmarshal quotes JSON: %w", err)
	}
	if quotes == nil {
		quotes = []ExtractedQuote{}
	}
	return quotes, nil
}

func stripFences(raw string) string {
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```JSON", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw)
}
