package library

import "errors"

var (
	// ErrNoTargetBook is returned by AddQuote when no book label is given.
	// Nothing is written.
	ErrNoTargetBook = errors.New("no target book for quote")

	// ErrEmptyQuoteText is returned by AddQuote when the quote text is blank.
	ErrEmptyQuoteText = errors.New("quote text is required")

	// ErrEmptyAPIKey is returned when saving a blank API key.
	ErrEmptyAPIKey = errors.New("api key is required")

	// ErrBookNotFound is returned when a toggle targets an unknown book.
	ErrBookNotFound = errors.New("book not found")

	// ErrQuoteNotFound is returned when a toggle targets an unknown quote.
	ErrQuoteNotFound = errors.New("quote not found")
)
