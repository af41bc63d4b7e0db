// Package library holds the persisted books and quotes and every mutation on them.
package library

import (
	"encoding/json"
	"strings"
	"time"
)

// BuiltinQuoteCount is the number of quotes shipped with the new-tab page.
// It is added to the custom quote count for the displayed total.
const BuiltinQuoteCount = 22

// UnknownAuthor is used when a quote has no attributed author.
const UnknownAuthor = "Unknown"

// Quote is a persisted text snippet attributed to an author and tied to a Book
// through the normalized book title.
type Quote struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Author  string `json:"author" yaml:"author"`
	Book    string `json:"book" yaml:"book"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// Book is the metadata record for one processed or manually created quote source.
// Title keeps the file extension; it is the record's identity.
type Book struct {
	Title      string    `json:"title"`
	QuoteCount int       `json:"quoteCount"`
	Date       time.Time `json:"date"`
	Enabled    bool      `json:"enabled"`
}

// NormalizedTitle returns the key used to join the book with its quotes.
func (b Book) NormalizedTitle() string {
	return NormalizeTitle(b.Title)
}

// NormalizeTitle strips surrounding space and one trailing ".pdf" extension.
// It is the only place title canonicalization happens.
func NormalizeTitle(title string) string {
	t := strings.TrimSpace(title)
	if len(t) >= 4 && strings.EqualFold(t[len(t)-4:], ".pdf") {
		t = strings.TrimSpace(t[:len(t)-4])
	}
	return t
}

// SameBook reports whether two titles refer to the same book.
func SameBook(a, b string) bool {
	return NormalizeTitle(a) == NormalizeTitle(b)
}

// UnmarshalJSON defaults Enabled to true for records written before the
// field existed.
func (q *Quote) UnmarshalJSON(data []byte) error {
	type plain Quote
	aux := struct {
		*plain
		Enabled *bool `json:"enabled"`
	}{plain: (*plain)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	q.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// UnmarshalJSON defaults Enabled to true for records written before the
// field existed.
func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	aux := struct {
		*plain
		Enabled *bool `json:"enabled"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}
