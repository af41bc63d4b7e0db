package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashicode/quoteshelf/internal/llm"
	"github.com/akashicode/quoteshelf/internal/reader"
)

func TestRanges(t *testing.T) {
	tests := []struct {
		name  string
		total int
		size  int
		want  []PageRange
	}{
		{name: "single partial", total: 7, size: 20, want: []PageRange{{1, 7}}},
		{name: "exact multiple", total: 40, size: 20, want: []PageRange{{1, 20}, {21, 40}}},
		{name: "trailing partial", total: 45, size: 20, want: []PageRange{{1, 20}, {21, 40}, {41, 45}}},
		{name: "one page each", total: 3, size: 1, want: []PageRange{{1, 1}, {2, 2}, {3, 3}}},
		{name: "no pages", total: 0, size: 20, want: []PageRange{}},
		{name: "bad size", total: 5, size: 0, want: []PageRange{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ranges(tt.total, tt.size))
		})
	}
}

func TestRanges_CoverEveryPageOnce(t *testing.T) {
	for total := 1; total <= 75; total++ {
		for _, size := range []int{1, 3, 20, 100} {
			seen := make(map[int]int)
			for _, r := range Ranges(total, size) {
				assert.LessOrEqual(t, r.End-r.Start+1, size)
				for p := r.Start; p <= r.End; p++ {
					seen[p]++
				}
			}
			require.Len(t, seen, total)
			for p := 1; p <= total; p++ {
				assert.Equal(t, 1, seen[p], "page %d of %d (size %d)", p, total, size)
			}
		}
	}
}

func TestRangeText(t *testing.T) {
	pages := reader.StaticPages{"one", "two", "three"}
	text, err := RangeText(pages, PageRange{1, 3})
	require.NoError(t, err)
	assert.Equal(t, "one two three", text)

	_, err = RangeText(pages, PageRange{3, 4})
	assert.Error(t, err)
}

func TestNewScheduler(t *testing.T) {
	_, err := NewScheduler(Options{ChunkSize: 0})
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	s, err := NewScheduler(Options{ChunkSize: 5, MinChars: -1, Delay: -time.Second})
	require.NoError(t, err)
	assert.Equal(t, 0, s.opts.MinChars)
	assert.Equal(t, time.Duration(0), s.opts.Delay)

	assert.Equal(t, Options{ChunkSize: 20, MinChars: 100, Delay: 500 * time.Millisecond}, DefaultOptions())
}

// page returns text comfortably above the default minimum length.
func page(label string) string {
	return label + " " + strings.Repeat("lorem ipsum ", 20)
}

type recorder struct {
	calls  []string
	sleeps []time.Duration
}

func newTestScheduler(t *testing.T, opts Options, rec *recorder) *Scheduler {
	t.Helper()
	s, err := NewScheduler(opts)
	require.NoError(t, err)
	s.sleep = func(ctx context.Context, d time.Duration) error {
		rec.sleeps = append(rec.sleeps, d)
		return ctx.Err()
	}
	return s
}

func TestRun_OrderAndFailures(t *testing.T) {
	pages := reader.StaticPages{page("A"), page("B"), page("C"), page("D"), page("E")}
	rec := &recorder{}
	s := newTestScheduler(t, Options{ChunkSize: 2, MinChars: 100, Delay: 500 * time.Millisecond}, rec)

	var progress []Progress
	s.OnProgress(func(p Progress) { progress = append(progress, p) })

	ex := llm.ExtractorFunc(func(_ context.Context, text string) ([]llm.ExtractedQuote, error) {
		label := text[:1]
		rec.calls = append(rec.calls, label)
		switch label {
		case "A":
			return []llm.ExtractedQuote{{Text: "a1"}, {Text: "a2"}}, nil
		case "C":
			return nil, errors.New("rate limited")
		default:
			return []llm.ExtractedQuote{{Text: "e1"}}, nil
		}
	})

	quotes, err := s.Run(context.Background(), pages, ex)
	require.NoError(t, err)
	assert.Equal(t, []llm.ExtractedQuote{{Text: "a1"}, {Text: "a2"}, {Text: "e1"}}, quotes)
	assert.Equal(t, []string{"A", "C", "E"}, rec.calls)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}, rec.sleeps)

	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Range: PageRange{1, 2}, Index: 1, Total: 3, Result: OutcomeSubmitted, Quotes: 2}, progress[0])
	assert.Equal(t, OutcomeFailed, progress[1].Result)
	assert.EqualError(t, progress[1].Err, "rate limited")
	assert.Equal(t, PageRange{5, 5}, progress[2].Range)
}

func TestRun_SkipsShortRanges(t *testing.T) {
	short := strings.Repeat("x", 100)
	pages := reader.StaticPages{"   " + short + "   ", page("B")}
	rec := &recorder{}
	s := newTestScheduler(t, Options{ChunkSize: 1, MinChars: 100}, rec)

	var results []Outcome
	s.OnProgress(func(p Progress) { results = append(results, p.Result) })

	ex := llm.ExtractorFunc(func(_ context.Context, text string) ([]llm.ExtractedQuote, error) {
		rec.calls = append(rec.calls, text[:1])
		return []llm.ExtractedQuote{{Text: "b"}}, nil
	})

	quotes, err := s.Run(context.Background(), pages, ex)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.Equal(t, []string{"B"}, rec.calls, "a range of exactly MinChars trimmed characters is not submitted")
	assert.Equal(t, []Outcome{OutcomeSkipped, OutcomeSubmitted}, results)
	assert.Len(t, rec.sleeps, 2, "the pause follows skipped ranges too")
}

func TestRun_NoQuotesFound(t *testing.T) {
	tests := []struct {
		name  string
		pages reader.StaticPages
		ex    llm.ExtractorFunc
	}{
		{
			name:  "scanned document",
			pages: reader.StaticPages{"", " ", ""},
			ex: func(context.Context, string) ([]llm.ExtractedQuote, error) {
				t.Fatal("extractor must not be called")
				return nil, nil
			},
		},
		{
			name:  "every range fails",
			pages: reader.StaticPages{page("A")},
			ex: func(context.Context, string) ([]llm.ExtractedQuote, error) {
				return nil, errors.New("boom")
			},
		},
		{
			name:  "model finds nothing",
			pages: reader.StaticPages{page("A")},
			ex: func(context.Context, string) ([]llm.ExtractedQuote, error) {
				return []llm.ExtractedQuote{}, nil
			},
		},
		{
			name:  "empty document",
			pages: reader.StaticPages{},
			ex: func(context.Context, string) ([]llm.ExtractedQuote, error) {
				return nil, nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(t, DefaultOptions(), &recorder{})
			quotes, err := s.Run(context.Background(), tt.pages, tt.ex)
			assert.ErrorIs(t, err, ErrNoQuotesFound)
			assert.Nil(t, quotes)
		})
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pages := reader.StaticPages{page("A"), page("B"), page("C")}
	calls := 0
	ex := llm.ExtractorFunc(func(context.Context, string) ([]llm.ExtractedQuote, error) {
		calls++
		cancel()
		return []llm.ExtractedQuote{{Text: "q"}}, nil
	})

	s := newTestScheduler(t, Options{ChunkSize: 1}, &recorder{})
	_, err := s.Run(ctx, pages, ex)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRun_NilInput(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions(), &recorder{})
	_, err := s.Run(context.Background(), nil, llm.ExtractorFunc(nil))
	assert.ErrorIs(t, err, ErrNilInput)
	_, err = s.Run(context.Background(), reader.StaticPages{}, nil)
	assert.ErrorIs(t, err, ErrNilInput)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
