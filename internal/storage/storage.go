// Package storage provides the key-value substrate behind the quote library.
// Values are opaque JSON documents addressed by a fixed set of keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys persisted by the library.
const (
	KeyAPIKey         = "geminiApiKey"
	KeyBooks          = "processedBooks"
	KeyQuotes         = "customQuotes"
	KeyLastQuoteIndex = "lastQuoteIndex"
)

// ErrClosed is returned when a closed store is used.
var ErrClosed = errors.New("storage is closed")

// KV is a flat key-value store with whole-value reads and writes.
// Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
	Clear(ctx context.Context) error
	Close() error
}

// GetJSON decodes the value at key into dst. A missing key leaves dst untouched
// and reports false.
func GetJSON(ctx context.Context, kv KV, key string, dst any) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes every value and writes them in one call.
func SetJSON(ctx context.Context, kv KV, values map[string]any) error {
	encoded := make(map[string][]byte, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %q: %w", k, err)
		}
		encoded[k] = data
	}
	if err := kv.Set(ctx, encoded); err != nil {
		return fmt.Errorf("set %d key(s): %w", len(encoded), err)
	}
	return nil
}
