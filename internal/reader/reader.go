package reader

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// PDFMimeType is the only accepted upload type.
const PDFMimeType = "application/pdf"

// ErrNotPDF is returned when an upload is not a PDF document.
var ErrNotPDF = errors.New("please upload a valid PDF file")

// ErrNoPages is returned when a PDF has no readable pages.
var ErrNoPages = errors.New("pdf has no pages")

// PageSource yields the plain text of a document page by page.
// Pages are numbered from 1.
type PageSource interface {
	NumPages() int
	PageText(page int) (string, error)
}

// Upload is a single file handed to the extraction pipeline.
type Upload struct {
	// Name is the original filename including its extension.
	Name string
	// ContentType is the type declared by the client, if any.
	ContentType string
	// Data is the raw file content.
	Data []byte
}

// LoadFile reads an upload from disk. The declared type comes from the
// file extension.
func LoadFile(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("read file %q: %w", path, err)
	}
	return Upload{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	}, nil
}

// CheckPDF rejects uploads that are not PDFs. A declared type other than
// application/pdf is rejected outright; the content is then sniffed.
func CheckPDF(u Upload) error {
	if declared := mediaType(u.ContentType); declared != "" && declared != PDFMimeType {
		return fmt.Errorf("%w: got %s", ErrNotPDF, declared)
	}
	if sniffed := mediaType(http.DetectContentType(u.Data)); sniffed != PDFMimeType {
		return fmt.Errorf("%w: content looks like %s", ErrNotPDF, sniffed)
	}
	return nil
}

func mediaType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mt
}
