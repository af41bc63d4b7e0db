package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashicode/quoteshelf/internal/config"
	"github.com/akashicode/quoteshelf/internal/ingest"
	"github.com/akashicode/quoteshelf/internal/library"
	"github.com/akashicode/quoteshelf/internal/llm"
	"github.com/akashicode/quoteshelf/internal/metrics"
	"github.com/akashicode/quoteshelf/internal/newtab"
	"github.com/akashicode/quoteshelf/internal/reader"
	"github.com/akashicode/quoteshelf/internal/storage"
)

type testEnv struct {
	srv *httptest.Server
	lib *library.Library
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := storage.NewMemory()
	ids := 0
	lib := library.New(kv, library.WithIDGenerator(func() string {
		ids++
		return "q" + string(rune('0'+ids))
	}))

	cfg := &config.Config{
		LLM:     config.ProviderConfig{Provider: config.ProviderGemini},
		Extract: config.ExtractConfig{ChunkSize: 20, MinChars: 10},
	}
	pipeline := ingest.New(lib, cfg,
		ingest.WithExtractorFactory(func(string) (llm.Extractor, error) {
			return llm.ExtractorFunc(func(context.Context, string) ([]llm.ExtractedQuote, error) {
				return []llm.ExtractedQuote{
					{Text: "Simplify, simplify.", Author: "Henry David Thoreau"},
					{Text: "Go confidently in the direction of your dreams."},
				}, nil
			}), nil
		}),
		ingest.WithOpener(func([]byte) (reader.PageSource, error) {
			return reader.StaticPages{strings.Repeat("woods ", 40)}, nil
		}),
	)

	s, err := New(Config{
		Library:  lib,
		Pipeline: pipeline,
		Picker:   newtab.NewPicker(lib, kv, newtab.WithRand(func(n int) int { return n - 1 })),
		Metrics:  metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, lib: lib}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (e *testEnv) upload(t *testing.T, name, contentType string, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/books", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(t, req)
}

func stats(t *testing.T, body map[string]any) (total, custom float64) {
	t.Helper()
	snap, ok := body["snapshot"].(map[string]any)
	require.True(t, ok, "response has a snapshot")
	st := snap["stats"].(map[string]any)
	return st["totalQuotes"].(float64), st["customQuotes"].(float64)
}

func TestHealthAndStats(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp, body = e.do(t, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(library.BuiltinQuoteCount), body["totalQuotes"])
	assert.Equal(t, float64(0), body["customQuotes"])
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, e.srv.URL+"/api/quotes", nil)
	require.NoError(t, err)
	resp, _ := e.send(t, req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUploadFlow(t *testing.T) {
	e := newTestEnv(t)
	pdf := []byte("%PDF-1.4\n%test\n")

	resp, body := e.upload(t, "Walden.pdf", "application/pdf", pdf)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, "error", body["status"])

	resp, body = e.do(t, http.MethodPut, "/api/key", map[string]string{"key": "AIza-test"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "API Key saved!", body["message"])

	resp, body = e.upload(t, "notes.txt", "text/plain", []byte("just text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, reader.ErrNotPDF.Error()+": got text/plain", body["message"])

	resp, body = e.upload(t, "Walden.pdf", "application/pdf", pdf)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Successfully extracted 2 quotes from Walden.pdf!", body["message"])
	total, custom := stats(t, body)
	assert.Equal(t, float64(24), total)
	assert.Equal(t, float64(2), custom)

	resp, body = e.do(t, http.MethodGet, "/api/books/"+url.PathEscape("Walden.pdf")+"/quotes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	quotes := body["quotes"].([]any)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Walden", quotes[0].(map[string]any)["book"])
	assert.Equal(t, library.UnknownAuthor, quotes[1].(map[string]any)["author"])
}

func TestQuoteLifecycle(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/quotes", library.NewQuote{Text: "Hi", Book: "Notes"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "q1", data["id"])
	assert.Equal(t, library.UnknownAuthor, data["author"])
	snap := body["snapshot"].(map[string]any)
	require.NotNil(t, snap["openBook"])

	resp, body = e.do(t, http.MethodPost, "/api/quotes", library.NewQuote{Text: "Hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, library.ErrNoTargetBook.Error(), body["message"])

	resp, _ = e.do(t, http.MethodPost, "/api/quotes", library.NewQuote{Text: " ", Book: "Notes"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/api/quotes/q1/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]any)["enabled"])

	resp, _ = e.do(t, http.MethodPost, "/api/quotes/missing/toggle", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, http.MethodDelete, "/api/quotes/q1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]any)["removed"])
	total, custom := stats(t, body)
	assert.Equal(t, float64(22), total)
	assert.Equal(t, float64(0), custom)

	resp, body = e.do(t, http.MethodDelete, "/api/quotes/q1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]any)["removed"])
}

func TestBookLifecycle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.lib.AddQuote(ctx, library.NewQuote{Text: "a", Book: "Dune.pdf"})
	require.NoError(t, err)
	_, err = e.lib.AddQuote(ctx, library.NewQuote{Text: "b", Book: "Dune"})
	require.NoError(t, err)

	resp, body := e.do(t, http.MethodPost, "/api/books/Dune.pdf/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]any)["enabled"])

	resp, _ = e.do(t, http.MethodPost, "/api/books/Nope/toggle", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/books/Nope/quotes", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	books := body["snapshot"].(map[string]any)["books"].([]any)
	require.Len(t, books, 1)
	assert.Equal(t, float64(2), books[0].(map[string]any)["matching"])

	resp, body = e.do(t, http.MethodDelete, "/api/books/Dune.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["data"].(map[string]any)["removedQuotes"])
	total, custom := stats(t, body)
	assert.Equal(t, float64(22), total)
	assert.Equal(t, float64(0), custom)
}

func TestReconcileAndReset(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, _, err := e.lib.UpsertExtraction(ctx, "Walden.pdf", []library.NewQuote{{Text: "a"}})
	require.NoError(t, err)
	_, _, err = e.lib.UpsertExtraction(ctx, "Walden.pdf", []library.NewQuote{{Text: "b"}})
	require.NoError(t, err)

	resp, body := e.do(t, http.MethodPost, "/api/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["changed"])

	resp, body = e.do(t, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	total, custom := stats(t, body)
	assert.Equal(t, float64(22), total)
	assert.Equal(t, float64(0), custom)

	key, err := e.lib.APIKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestRandomQuote(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.lib.AddQuote(context.Background(), library.NewQuote{Text: "Mine", Author: "Me", Book: "Journal"})
	require.NoError(t, err)

	resp, body := e.do(t, http.MethodGet, "/api/quotes/random", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	quote := body["quote"].(map[string]any)
	assert.Equal(t, "Mine", quote["text"])
	assert.Equal(t, false, body["builtin"])
}

func TestSearch(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/api/search?q="+url.QueryEscape("marcus aurelius"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://www.google.com/search?q=marcus%20aurelius", body["url"])

	resp, _ = e.do(t, http.MethodGet, "/api/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	r, err := client.Get(e.srv.URL + "/api/search?redirect=1&q=github.com")
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusFound, r.StatusCode)
	assert.Equal(t, "https://github.com", r.Header.Get("Location"))
}

func TestSetKey_Empty(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodPut, "/api/key", map[string]string{"key": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/api/stats", nil)

	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `quoteshelf_http_requests_total{code="200",method="GET",route="GET /api/stats"} 1`)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
