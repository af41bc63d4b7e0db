// Package server exposes the library, extraction pipeline and new-tab helpers
// as a JSON HTTP API for the extension pages.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/akashicode/quoteshelf/internal/ingest"
	"github.com/akashicode/quoteshelf/internal/library"
	"github.com/akashicode/quoteshelf/internal/metrics"
	"github.com/akashicode/quoteshelf/internal/newtab"
)

// DefaultMaxUploadBytes caps the size of an uploaded PDF.
const DefaultMaxUploadBytes = 64 << 20

// Server is the quoteshelf HTTP API.
type Server struct {
	lib         *library.Library
	pipeline    *ingest.Pipeline
	picker      *newtab.Picker
	metrics     *metrics.Metrics
	maxUpload   int64
	logRequests bool
	mux         *http.ServeMux
}

// Config holds the server dependencies.
type Config struct {
	Library  *library.Library
	Pipeline *ingest.Pipeline
	Picker   *newtab.Picker
	Metrics  *metrics.Metrics

	// MaxUploadBytes defaults to DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// LogRequests prints a colorized line per request to the terminal.
	LogRequests bool
}

// New creates a Server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Library == nil {
		return nil, errors.New("library is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("ingest pipeline is required")
	}
	if cfg.Picker == nil {
		return nil, errors.New("quote picker is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		lib:         cfg.Library,
		pipeline:    cfg.Pipeline,
		picker:      cfg.Picker,
		metrics:     cfg.Metrics,
		maxUpload:   cfg.MaxUploadBytes,
		logRequests: cfg.LogRequests,
		mux:         http.NewServeMux(),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.requestMiddleware(s.mux))
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/quotes/random", s.handleRandomQuote)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)

	s.mux.HandleFunc("GET /api/books", s.handleListBooks)
	s.mux.HandleFunc("POST /api/books", s.handleUpload)
	s.mux.HandleFunc("DELETE /api/books/{title}", s.handleDeleteBook)
	s.mux.HandleFunc("POST /api/books/{title}/toggle", s.handleToggleBook)
	s.mux.HandleFunc("GET /api/books/{title}/quotes", s.handleBookQuotes)

	s.mux.HandleFunc("POST /api/quotes", s.handleAddQuote)
	s.mux.HandleFunc("DELETE /api/quotes/{id}", s.handleDeleteQuote)
	s.mux.HandleFunc("POST /api/quotes/{id}/toggle", s.handleToggleQuote)

	s.mux.HandleFunc("PUT /api/key", s.handleSetKey)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/reconcile", s.handleReconcile)
}

// Response statuses shared with the extension's status line.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// response is the envelope of every mutation and error.
type response struct {
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Snapshot *library.Snapshot `json:"snapshot,omitempty"`
	Data     any               `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, response{Status: statusError, Message: err.Error()})
}

func writeErrorf(w http.ResponseWriter, code int, format string, args ...any) {
	writeError(w, code, fmt.Errorf(format, args...))
}
