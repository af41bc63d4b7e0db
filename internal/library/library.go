package library

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/akashicode/quoteshelf/internal/storage"
)

// NewQuote is the caller-supplied part of a quote.
type NewQuote struct {
	Text   string `json:"text" validate:"required"`
	Author string `json:"author"`
	Book   string `json:"book"`
}

// Library performs read-modify-write operations on the persisted books and quotes.
// Operations are serialized within one process; the substrate gives
// last-writer-wins across processes.
type Library struct {
	kv    storage.KV
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// Option configures a Library.
type Option func(*Library)

// WithClock overrides the timestamp source used for new books.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithIDGenerator overrides quote id generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Library) { l.newID = gen }
}

// New returns a Library backed by kv.
func New(kv storage.KV, opts ...Option) *Library {
	l := &Library{
		kv:    kv,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type state struct {
	books  []Book
	quotes []Quote
	// dirty is set when load had to fill in missing quote ids.
	dirty bool
}

func (l *Library) load(ctx context.Context) (*state, error) {
	st := &state{books: []Book{}, quotes: []Quote{}}
	if _, err := storage.GetJSON(ctx, l.kv, storage.KeyBooks, &st.books); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	if _, err := storage.GetJSON(ctx, l.kv, storage.KeyQuotes, &st.quotes); err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}
	// Records written without ids get one now; it is persisted by the next save.
	for i := range st.quotes {
		if st.quotes[i].ID == "" {
			st.quotes[i].ID = l.newID()
			st.dirty = true
		}
	}
	return st, nil
}

func (l *Library) save(ctx context.Context, st *state) error {
	err := storage.SetJSON(ctx, l.kv, map[string]any{
		storage.KeyBooks:  st.books,
		storage.KeyQuotes: st.quotes,
	})
	if err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	return nil
}

// update runs fn on the loaded state and saves it when fn reports a change.
func (l *Library) update(ctx context.Context, fn func(st *state) (bool, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(st)
	if err != nil || !(changed || st.dirty) {
		return err
	}
	return l.save(ctx, st)
}

// read loads the state for a read-only caller, persisting any ids load assigned.
func (l *Library) read(ctx context.Context) (*state, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if st.dirty {
		if err := l.save(ctx, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Books returns the processed book list in stored order.
func (l *Library) Books(ctx context.Context) ([]Book, error) {
	st, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	return st.books, nil
}

// Quotes returns every custom quote in stored order.
func (l *Library) Quotes(ctx context.Context) ([]Quote, error) {
	st, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	return st.quotes, nil
}

// QuotesForBook returns the quotes whose normalized book matches title.
func (l *Library) QuotesForBook(ctx context.Context, title string) ([]Quote, error) {
	quotes, err := l.Quotes(ctx)
	if err != nil {
		return nil, err
	}
	return filterByBook(quotes, title), nil
}

func filterByBook(quotes []Quote, title string) []Quote {
	key := NormalizeTitle(title)
	out := []Quote{}
	for _, q := range quotes {
		if NormalizeTitle(q.Book) == key {
			out = append(out, q)
		}
	}
	return out
}

// UpsertExtraction records the result of processing the file named title.
// Any book with the same normalized title is replaced by a fresh entry whose
// count is len(quotes). The quotes are appended; quotes stored by an earlier
// run for the same book are kept.
func (l *Library) UpsertExtraction(ctx context.Context, title string, quotes []NewQuote) (Book, []Quote, error) {
	book := Book{
		Title:      strings.TrimSpace(title),
		QuoteCount: len(quotes),
		Enabled:    true,
	}
	var added []Quote

	err := l.update(ctx, func(st *state) (bool, error) {
		book.Date = l.now()
		kept := st.books[:0]
		for _, b := range st.books {
			if !SameBook(b.Title, book.Title) {
				kept = append(kept, b)
			}
		}
		st.books = append(kept, book)

		key := book.NormalizedTitle()
		added = make([]Quote, 0, len(quotes))
		for _, nq := range quotes {
			added = append(added, Quote{
				ID:      l.newID(),
				Text:    nq.Text,
				Author:  authorOrUnknown(nq.Author),
				Book:    key,
				Enabled: true,
			})
		}
		st.quotes = append(st.quotes, added...)
		return true, nil
	})
	if err != nil {
		return Book{}, nil, err
	}
	return book, added, nil
}

// AddQuote appends one manually entered quote under in.Book. The book with the
// same normalized title has its count incremented, or a book titled in.Book is
// created with a count of one.
func (l *Library) AddQuote(ctx context.Context, in NewQuote) (Quote, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.Book = strings.TrimSpace(in.Book)
	if in.Book == "" {
		return Quote{}, ErrNoTargetBook
	}
	if err := validate.Struct(in); err != nil {
		return Quote{}, ErrEmptyQuoteText
	}

	q := Quote{
		Text:    in.Text,
		Author:  authorOrUnknown(in.Author),
		Book:    NormalizeTitle(in.Book),
		Enabled: true,
	}
	err := l.update(ctx, func(st *state) (bool, error) {
		q.ID = l.newID()
		st.quotes = append(st.quotes, q)
		if i := indexOfBook(st.books, in.Book); i >= 0 {
			st.books[i].QuoteCount++
		} else {
			st.books = append(st.books, Book{
				Title:      in.Book,
				QuoteCount: 1,
				Date:       l.now(),
				Enabled:    true,
			})
		}
		return true, nil
	})
	if err != nil {
		return Quote{}, err
	}
	return q, nil
}

// DeleteQuote removes the quote with the given id and decrements its book's
// count, never below zero. It reports whether a quote was removed.
func (l *Library) DeleteQuote(ctx context.Context, id string) (bool, error) {
	removed := false
	err := l.update(ctx, func(st *state) (bool, error) {
		i := indexOfQuote(st.quotes, id)
		if i < 0 {
			return false, nil
		}
		q := st.quotes[i]
		st.quotes = append(st.quotes[:i], st.quotes[i+1:]...)
		if bi := indexOfBook(st.books, q.Book); bi >= 0 && st.books[bi].QuoteCount > 0 {
			st.books[bi].QuoteCount--
		}
		removed = true
		return true, nil
	})
	return removed, err
}

// DeleteBook removes every book and every quote matching the normalized title.
// It returns the number of quotes removed; an unknown title removes nothing.
func (l *Library) DeleteBook(ctx context.Context, title string) (int, error) {
	removed := 0
	err := l.update(ctx, func(st *state) (bool, error) {
		quotes := st.quotes[:0]
		for _, q := range st.quotes {
			if SameBook(q.Book, title) {
				removed++
				continue
			}
			quotes = append(quotes, q)
		}
		st.quotes = quotes

		before := len(st.books)
		books := st.books[:0]
		for _, b := range st.books {
			if !SameBook(b.Title, title) {
				books = append(books, b)
			}
		}
		st.books = books
		return removed > 0 || len(books) != before, nil
	})
	return removed, err
}

// ToggleBook flips Enabled on the first book matching title. Its quotes are
// left as they are.
func (l *Library) ToggleBook(ctx context.Context, title string) (Book, error) {
	var out Book
	err := l.update(ctx, func(st *state) (bool, error) {
		i := indexOfBook(st.books, title)
		if i < 0 {
			return false, fmt.Errorf("%w: %q", ErrBookNotFound, title)
		}
		st.books[i].Enabled = !st.books[i].Enabled
		out = st.books[i]
		return true, nil
	})
	return out, err
}

// ToggleQuote flips Enabled on the quote with the given id.
func (l *Library) ToggleQuote(ctx context.Context, id string) (Quote, error) {
	var out Quote
	err := l.update(ctx, func(st *state) (bool, error) {
		i := indexOfQuote(st.quotes, id)
		if i < 0 {
			return false, fmt.Errorf("%w: %q", ErrQuoteNotFound, id)
		}
		st.quotes[i].Enabled = !st.quotes[i].Enabled
		out = st.quotes[i]
		return true, nil
	})
	return out, err
}

// Reconcile recomputes every book's QuoteCount from the quote collection and
// returns how many books changed.
func (l *Library) Reconcile(ctx context.Context) (int, error) {
	changed := 0
	err := l.update(ctx, func(st *state) (bool, error) {
		counts := countByBook(st.quotes)
		for i := range st.books {
			n := counts[st.books[i].NormalizedTitle()]
			if st.books[i].QuoteCount != n {
				st.books[i].QuoteCount = n
				changed++
			}
		}
		return changed > 0, nil
	})
	return changed, err
}

// SetAPIKey stores the model API key.
func (l *Library) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyAPIKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := storage.SetJSON(ctx, l.kv, map[string]any{storage.KeyAPIKey: key}); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	return nil
}

// APIKey returns the stored model API key, or "" when none is saved.
func (l *Library) APIKey(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var key string
	if _, err := storage.GetJSON(ctx, l.kv, storage.KeyAPIKey, &key); err != nil {
		return "", err
	}
	return key, nil
}

// Reset wipes the whole store, API key included.
func (l *Library) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.kv.Clear(ctx); err != nil {
		return fmt.Errorf("reset library: %w", err)
	}
	return nil
}

func authorOrUnknown(author string) string {
	if a := strings.TrimSpace(author); a != "" {
		return a
	}
	return UnknownAuthor
}

func indexOfBook(books []Book, title string) int {
	for i, b := range books {
		if SameBook(b.Title, title) {
			return i
		}
	}
	return -1
}

func indexOfQuote(quotes []Quote, id string) int {
	for i, q := range quotes {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func countByBook(quotes []Quote) map[string]int {
	counts := make(map[string]int)
	for _, q := range quotes {
		counts[NormalizeTitle(q.Book)]++
	}
	return counts
}
