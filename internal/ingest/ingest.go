// Package ingest turns an uploaded PDF into stored quotes: it checks the file,
// runs chunked extraction and commits the result to the library.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/akashicode/quoteshelf/internal/chunker"
	"github.com/akashicode/quoteshelf/internal/config"
	"github.com/akashicode/quoteshelf/internal/library"
	"github.com/akashicode/quoteshelf/internal/llm"
	"github.com/akashicode/quoteshelf/internal/logging"
	"github.com/akashicode/quoteshelf/internal/metrics"
	"github.com/akashicode/quoteshelf/internal/reader"
)

// ErrNilLibrary is returned when the pipeline has no library to commit to.
var ErrNilLibrary = errors.New("library is nil")

// ExtractorFactory builds an extractor for the resolved API key.
type ExtractorFactory func(apiKey string) (llm.Extractor, error)

// Opener parses raw document bytes into pages.
type Opener func(data []byte) (reader.PageSource, error)

// Result summarizes a committed extraction.
type Result struct {
	Book    library.Book
	Quotes  []library.Quote
	Pages   int
	Chunks  int
	Skipped int
	Failed  int
	Elapsed time.Duration
}

// Pipeline processes uploads one at a time.
type Pipeline struct {
	lib          *library.Library
	opts         chunker.Options
	configKey    string
	newExtractor ExtractorFactory
	open         Opener
	metrics      *metrics.Metrics
	progress     func(chunker.Progress)
	now          func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtractorFactory overrides how extractors are built.
func WithExtractorFactory(f ExtractorFactory) Option {
	return func(p *Pipeline) { p.newExtractor = f }
}

// WithOpener overrides PDF parsing.
func WithOpener(o Opener) Option {
	return func(p *Pipeline) { p.open = o }
}

// WithMetrics records chunk and job outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithProgress registers a callback invoked after every page range.
func WithProgress(fn func(chunker.Progress)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithClock overrides the clock used to time jobs.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a Pipeline from the application config.
func New(lib *library.Library, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		lib:  lib,
		opts: chunker.DefaultOptions(),
		open: openPDF,
		now:  time.Now,
	}
	if cfg != nil {
		p.opts = chunker.Options{
			ChunkSize: cfg.Extract.ChunkSize,
			MinChars:  cfg.Extract.MinChars,
			Delay:     cfg.Extract.Delay,
		}
		p.configKey = cfg.LLM.APIKey
		llmCfg := cfg.LLM
		p.newExtractor = func(apiKey string) (llm.Extractor, error) {
			return llm.NewExtractor(&llmCfg, apiKey)
		}
	} else {
		p.newExtractor = func(apiKey string) (llm.Extractor, error) {
			return llm.NewExtractor(&config.ProviderConfig{Provider: config.ProviderGemini}, apiKey)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func openPDF(data []byte) (reader.PageSource, error) {
	doc, err := reader.OpenPDF(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Process runs one upload end to end. Nothing is stored unless extraction
// produced at least one quote.
func (p *Pipeline) Process(ctx context.Context, up reader.Upload) (Result, error) {
	start := p.now()
	res, err := p.process(ctx, up)
	res.Elapsed = p.now().Sub(start)

	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultFailed
	}
	p.metrics.ObserveJob(outcome, res.Elapsed)
	return res, err
}

func (p *Pipeline) process(ctx context.Context, up reader.Upload) (Result, error) {
	var res Result
	if p.lib == nil {
		return res, ErrNilLibrary
	}
	if err := reader.CheckPDF(up); err != nil {
		return res, err
	}

	key, err := p.apiKey(ctx)
	if err != nil {
		return res, err
	}
	ex, err := p.newExtractor(key)
	if err != nil {
		return res, fmt.Errorf("create extractor: %w", err)
	}

	ctx = logging.WithBook(ctx, up.Name)
	log := logging.FromContext(ctx)

	pages, err := p.open(up.Data)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", up.Name, err)
	}
	res.Pages = pages.NumPages()
	log.InfoContext(ctx, "processing PDF", slog.Int("pages", res.Pages))

	sched, err := chunker.NewScheduler(p.opts)
	if err != nil {
		return res, err
	}
	sched.OnProgress(func(pr chunker.Progress) {
		res.Chunks++
		switch pr.Result {
		case chunker.OutcomeSkipped:
			res.Skipped++
		case chunker.OutcomeFailed:
			res.Failed++
		}
		p.metrics.ObserveChunk(string(pr.Result), pr.Quotes)
		if p.progress != nil {
			p.progress(pr)
		}
	})

	extracted, err := sched.Run(ctx, pages, ex)
	if err != nil {
		return res, err
	}

	quotes := Normalize(up.Name, extracted)
	if len(quotes) == 0 {
		return res, chunker.ErrNoQuotesFound
	}

	book, stored, err := p.lib.UpsertExtraction(ctx, up.Name, quotes)
	if err != nil {
		return res, fmt.Errorf("store extraction: %w", err)
	}
	res.Book, res.Quotes = book, stored
	log.InfoContext(ctx, "book processed",
		slog.Int("quotes", len(stored)),
		slog.Int("chunks", res.Chunks),
		slog.Int("failed_chunks", res.Failed))
	return res, nil
}

// apiKey prefers the stored key over the configured one.
func (p *Pipeline) apiKey(ctx context.Context) (string, error) {
	key, err := p.lib.APIKey(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = strings.TrimSpace(p.configKey)
	}
	if key == "" {
		return "", llm.ErrMissingAPIKey
	}
	return key, nil
}

// Normalize prepares model output for storage: items without text are
// dropped, the author defaults to Unknown and the book becomes the normalized
// upload title.
func Normalize(title string, quotes []llm.ExtractedQuote) []library.NewQuote {
	book := library.NormalizeTitle(title)
	out := make([]library.NewQuote, 0, len(quotes))
	for _, q := range quotes {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		author := strings.TrimSpace(q.Author)
		if author == "" {
			author = library.UnknownAuthor
		}
		out = append(out, library.NewQuote{Text: text, Author: author, Book: book})
	}
	return out
}
