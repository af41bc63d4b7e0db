package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/akashicode/quoteshelf/internal/chunker"
	"github.com/akashicode/quoteshelf/internal/library"
	"github.com/akashicode/quoteshelf/internal/llm"
	"github.com/akashicode/quoteshelf/internal/logging"
	"github.com/akashicode/quoteshelf/internal/newtab"
	"github.com/akashicode/quoteshelf/internal/reader"
)

// handleHealth returns a simple health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.lib.Snapshot(r.Context(), library.View{})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"books":  len(snap.Books),
		"quotes": snap.Stats.TotalQuotes,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.lib.Snapshot(r.Context(), library.View{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Stats)
}

func (s *Server) handleRandomQuote(w http.ResponseWriter, r *http.Request) {
	pick, err := s.picker.Pick(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pick)
}

// handleSearch resolves the search box input. With ?redirect=1 the client is
// sent straight to the destination.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	dest, ok := newtab.ResolveSearch(r.URL.Query().Get("q"))
	if !ok {
		writeErrorf(w, http.StatusBadRequest, "query is empty")
		return
	}
	if r.URL.Query().Get("redirect") != "" {
		http.Redirect(w, r, dest, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": dest})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, library.View{OpenBook: r.URL.Query().Get("open")}, "", nil)
}

func (s *Server) handleBookQuotes(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	snap, err := s.lib.Snapshot(r.Context(), library.View{OpenBook: title})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap.OpenBook == nil {
		writeErrorf(w, http.StatusNotFound, "%v: %s", library.ErrBookNotFound, title)
		return
	}
	writeJSON(w, http.StatusOK, snap.OpenBook)
}

// handleUpload runs the extraction pipeline on the multipart "file" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErrorf(w, http.StatusBadRequest, "invalid upload: %v", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorf(w, http.StatusBadRequest, "please select a PDF file first")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorf(w, http.StatusBadRequest, "read upload: %v", err)
		return
	}

	up := reader.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	res, err := s.pipeline.Process(r.Context(), up)
	if err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "upload failed",
			slog.String("file", up.Name),
			slog.Any("error", err))
		writeError(w, uploadStatus(err), err)
		return
	}

	msg := fmt.Sprintf("Successfully extracted %d quotes from %s!", len(res.Quotes), res.Book.Title)
	s.respond(w, r, http.StatusCreated, library.View{}, msg, res.Book)
}

func uploadStatus(err error) int {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, reader.ErrNotPDF):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, llm.ErrMissingAPIKey):
		return http.StatusPreconditionFailed
	case errors.Is(err, chunker.ErrNoQuotesFound), errors.Is(err, reader.ErrNoPages):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	removed, err := s.lib.DeleteBook(r.Context(), title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	msg := fmt.Sprintf("Deleted %s and %d quotes.", title, removed)
	s.respond(w, r, http.StatusOK, library.View{}, msg, map[string]int{"removedQuotes": removed})
}

func (s *Server) handleToggleBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.lib.ToggleBook(r.Context(), r.PathValue("title"))
	if err != nil {
		writeError(w, notFoundOr500(err), err)
		return
	}
	s.respond(w, r, http.StatusOK, library.View{}, "", book)
}

func (s *Server) handleAddQuote(w http.ResponseWriter, r *http.Request) {
	var in library.NewQuote
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErrorf(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	q, err := s.lib.AddQuote(r.Context(), in)
	switch {
	case errors.Is(err, library.ErrNoTargetBook), errors.Is(err, library.ErrEmptyQuoteText):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, r, http.StatusCreated, library.View{OpenBook: in.Book}, "Quote added!", q)
}

func (s *Server) handleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	removed, err := s.lib.DeleteQuote(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, r, http.StatusOK, library.View{OpenBook: r.URL.Query().Get("open")}, "", map[string]bool{"removed": removed})
}

func (s *Server) handleToggleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.lib.ToggleQuote(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, notFoundOr500(err), err)
		return
	}
	s.respond(w, r, http.StatusOK, library.View{OpenBook: q.Book}, "", q)
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorf(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if err := s.lib.SetAPIKey(r.Context(), req.Key); err != nil {
		if errors.Is(err, library.ErrEmptyAPIKey) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Message: "API Key saved!"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, r, http.StatusOK, library.View{}, "All data has been reset.", nil)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	changed, err := s.lib.Reconcile(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	msg := fmt.Sprintf("Recounted quotes, %d books updated.", changed)
	s.respond(w, r, http.StatusOK, library.View{}, msg, map[string]int{"changed": changed})
}

// respond renders the refreshed snapshot for view after an operation.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, code int, view library.View, msg string, data any) {
	snap, err := s.lib.Snapshot(r.Context(), view)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, code, response{Status: statusSuccess, Message: msg, Snapshot: &snap, Data: data})
}

func notFoundOr500(err error) int {
	if errors.Is(err, library.ErrBookNotFound) || errors.Is(err, library.ErrQuoteNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
