package library

import "context"

// View is the caller's UI state. OpenBook names the book whose quotes are
// being shown, or is empty when no detail view is open.
type View struct {
	OpenBook string
}

// Stats are the two counters shown next to the book list.
type Stats struct {
	TotalQuotes  int `json:"totalQuotes"`
	CustomQuotes int `json:"customQuotes"`
}

// BookView pairs a stored book with the number of quotes actually matching it.
// The two differ when QuoteCount has drifted.
type BookView struct {
	Book     Book `json:"book"`
	Matching int  `json:"matching"`
}

// BookDetail is the open book's record and quotes.
type BookDetail struct {
	Book   Book    `json:"book"`
	Quotes []Quote `json:"quotes"`
}

// Snapshot is everything a renderer needs after an operation.
type Snapshot struct {
	Books    []BookView  `json:"books"`
	OpenBook *BookDetail `json:"openBook,omitempty"`
	Stats    Stats       `json:"stats"`
}

// StatsFor computes the counters for a custom quote collection of size n.
func StatsFor(n int) Stats {
	return Stats{TotalQuotes: BuiltinQuoteCount + n, CustomQuotes: n}
}

// Snapshot loads the current state and renders it for view. An OpenBook that
// no longer exists yields no detail.
func (l *Library) Snapshot(ctx context.Context, view View) (Snapshot, error) {
	st, err := l.read(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	counts := countByBook(st.quotes)
	snap := Snapshot{
		Books: make([]BookView, 0, len(st.books)),
		Stats: StatsFor(len(st.quotes)),
	}
	for _, b := range st.books {
		snap.Books = append(snap.Books, BookView{Book: b, Matching: counts[b.NormalizedTitle()]})
	}

	if view.OpenBook != "" {
		if i := indexOfBook(st.books, view.OpenBook); i >= 0 {
			snap.OpenBook = &BookDetail{
				Book:   st.books[i],
				Quotes: filterByBook(st.quotes, view.OpenBook),
			}
		}
	}
	return snap, nil
}
