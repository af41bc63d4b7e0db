package newtab

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/akashicode/quoteshelf/internal/library"
	"github.com/akashicode/quoteshelf/internal/storage"
)

// maxAttempts bounds the redraws spent avoiding the previous quote.
const maxAttempts = 10

// Fallback is shown when there is nothing to pick from.
var Fallback = library.Quote{Text: "Stay hungry, stay foolish.", Author: "Steve Jobs", Enabled: true}

// Source lists the persisted books and quotes.
type Source interface {
	Books(ctx context.Context) ([]library.Book, error)
	Quotes(ctx context.Context) ([]library.Quote, error)
}

// Pick is one drawn quote and its position in the pool.
type Pick struct {
	Quote    library.Quote `json:"quote"`
	Index    int           `json:"index"`
	Builtin  bool          `json:"builtin"`
	Fallback bool          `json:"fallback,omitempty"`
}

// Picker draws random quotes for the new tab, avoiding an immediate repeat.
type Picker struct {
	src      Source
	kv       storage.KV
	intn     func(n int) int
	builtins []library.Quote
}

// PickerOption configures a Picker.
type PickerOption func(*Picker)

// WithRand overrides the random index source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) PickerOption {
	return func(p *Picker) { p.intn = intn }
}

// WithBuiltin replaces the built-in pool, mostly for tests.
func WithBuiltin(quotes []library.Quote) PickerOption {
	return func(p *Picker) { p.builtins = quotes }
}

// NewPicker returns a Picker that reads custom quotes from src and stores the
// last shown index in kv.
func NewPicker(src Source, kv storage.KV, opts ...PickerOption) *Picker {
	p := &Picker{src: src, kv: kv, intn: rand.IntN, builtins: Builtin()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pool returns the built-in quotes followed by every enabled custom quote
// whose book is not disabled.
func (p *Picker) Pool(ctx context.Context) ([]library.Quote, error) {
	books, err := p.src.Books(ctx)
	if err != nil {
		return nil, err
	}
	quotes, err := p.src.Quotes(ctx)
	if err != nil {
		return nil, err
	}

	disabled := make(map[string]bool)
	for _, b := range books {
		if !b.Enabled {
			disabled[b.NormalizedTitle()] = true
		}
	}

	pool := make([]library.Quote, 0, len(p.builtins)+len(quotes))
	pool = append(pool, p.builtins...)
	for _, q := range quotes {
		if q.Enabled && !disabled[library.NormalizeTitle(q.Book)] {
			pool = append(pool, q)
		}
	}
	return pool, nil
}

// Pick draws a quote. With more than one candidate it redraws up to
// maxAttempts times to avoid the previously shown index, then remembers the
// chosen index.
func (p *Picker) Pick(ctx context.Context) (Pick, error) {
	pool, err := p.Pool(ctx)
	if err != nil {
		return Pick{}, err
	}
	if len(pool) == 0 {
		return Pick{Quote: Fallback, Index: -1, Fallback: true}, nil
	}

	last := -1
	if _, err := storage.GetJSON(ctx, p.kv, storage.KeyLastQuoteIndex, &last); err != nil {
		return Pick{}, fmt.Errorf("load last quote index: %w", err)
	}

	idx := p.intn(len(pool))
	for attempts := 1; len(pool) > 1 && idx == last && attempts < maxAttempts; attempts++ {
		idx = p.intn(len(pool))
	}

	if err := storage.SetJSON(ctx, p.kv, map[string]any{storage.KeyLastQuoteIndex: idx}); err != nil {
		return Pick{}, fmt.Errorf("save last quote index: %w", err)
	}
	return Pick{Quote: pool[idx], Index: idx, Builtin: idx < len(p.builtins)}, nil
}
