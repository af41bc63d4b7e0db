package chunker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akashicode/quoteshelf/internal/llm"
	"github.com/akashicode/quoteshelf/internal/logging"
	"github.com/akashicode/quoteshelf/internal/reader"
)

// ErrInvalidChunkSize is returned when an invalid chunk size is specified.
var ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

// ErrNilInput is returned when a nil page source or extractor is provided.
var ErrNilInput = errors.New("input source is nil")

// ErrNoQuotesFound is returned when no range produced any quote. It usually
// means the PDF is scanned or has no text layer.
var ErrNoQuotesFound = errors.New("no quotes found, is this a scanned PDF?")

// PageRange is an inclusive, 1-based range of pages processed as one unit.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Outcome describes what happened to one range.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Progress is reported after each range.
type Progress struct {
	Range  PageRange
	Index  int
	Total  int
	Result Outcome
	Quotes int
	Err    error
}

// Options configures the scheduler.
type Options struct {
	// ChunkSize is the number of pages per range.
	ChunkSize int
	// MinChars is the trimmed text length a range must exceed to be submitted.
	MinChars int
	// Delay is the pause after every range.
	Delay time.Duration
}

// DefaultOptions returns the pipeline defaults: 20 pages, 100 characters, 500ms.
func DefaultOptions() Options {
	return Options{
		ChunkSize: 20,
		MinChars:  100,
		Delay:     500 * time.Millisecond,
	}
}

// Scheduler drives extraction over a document one range at a time.
type Scheduler struct {
	opts     Options
	progress func(Progress)
	sleep    func(context.Context, time.Duration) error
}

// NewScheduler creates a Scheduler with the given options.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.ChunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if opts.MinChars < 0 {
		opts.MinChars = 0
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	return &Scheduler{opts: opts, sleep: sleepContext}, nil
}

// OnProgress registers a callback invoked after every range.
func (s *Scheduler) OnProgress(fn func(Progress)) {
	s.progress = fn
}

// Ranges partitions 1..total into consecutive ranges of at most size pages.
func Ranges(total, size int) []PageRange {
	if total <= 0 || size <= 0 {
		return []PageRange{}
	}
	out := make([]PageRange, 0, (total+size-1)/size)
	for i := 1; i <= total; i += size {
		end := i + size - 1
		if end > total {
			end = total
		}
		out = append(out, PageRange{Start: i, End: end})
	}
	return out
}

// RangeText joins the page texts of r with single spaces.
func RangeText(pages reader.PageSource, r PageRange) (string, error) {
	var sb strings.Builder
	for p := r.Start; p <= r.End; p++ {
		text, err := pages.PageText(p)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", p, err)
		}
		if p > r.Start {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// Run extracts quotes from every range in order. A failing range is logged and
// skipped. Quotes keep range order and within-range order. If nothing was
// extracted, Run returns ErrNoQuotesFound.
func (s *Scheduler) Run(ctx context.Context, pages reader.PageSource, ex llm.Extractor) ([]llm.ExtractedQuote, error) {
	if pages == nil || ex == nil {
		return nil, ErrNilInput
	}
	log := logging.FromContext(ctx)

	ranges := Ranges(pages.NumPages(), s.opts.ChunkSize)
	all := []llm.ExtractedQuote{}

	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := Progress{Range: r, Index: i + 1, Total: len(ranges)}
		quotes, err := s.runRange(ctx, pages, ex, r)
		switch {
		case err != nil:
			p.Result, p.Err = OutcomeFailed, err
			log.WarnContext(ctx, "chunk extraction failed",
				slog.String("pages", r.String()),
				slog.Any("error", err))
		case quotes == nil:
			p.Result = OutcomeSkipped
			log.DebugContext(ctx, "chunk skipped, too little text", slog.String("pages", r.String()))
		default:
			p.Result, p.Quotes = OutcomeSubmitted, len(quotes)
			all = append(all, quotes...)
		}
		if s.progress != nil {
			s.progress(p)
		}

		if err := s.sleep(ctx, s.opts.Delay); err != nil {
			return nil, err
		}
	}

	if len(all) == 0 {
		return nil, ErrNoQuotesFound
	}
	return all, nil
}

// runRange returns nil, nil when the range was skipped.
func (s *Scheduler) runRange(ctx context.Context, pages reader.PageSource, ex llm.Extractor, r PageRange) ([]llm.ExtractedQuote, error) {
	text, err := RangeText(pages, r)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= s.opts.MinChars {
		return nil, nil
	}
	quotes, err := ex.ExtractQuotes(ctx, text)
	if err != nil {
		return nil, err
	}
	if quotes == nil {
		quotes = []llm.ExtractedQuote{}
	}
	return quotes, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
