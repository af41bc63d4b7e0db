package reader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDF serves page text from an in-memory PDF document.
type PDF struct {
	r     *pdf.Reader
	pages int
}

// OpenPDF validates data with pdfcpu and prepares it for page-by-page text
// extraction.
func OpenPDF(data []byte) (*PDF, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrNotPDF)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read PDF structure: %w", err)
	}
	if pages == 0 {
		return nil, ErrNoPages
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF text layer: %w", err)
	}
	return &PDF{r: r, pages: pages}, nil
}

// NumPages returns the page count reported by pdfcpu.
func (p *PDF) NumPages() int {
	return p.pages
}

// PageText returns the page's text items joined by single spaces. Items are
// read row by row, top to bottom, left to right within a row. When the row
// walk finds nothing the plain text stream is used instead. A page without
// content yields "".
func (p *PDF) PageText(n int) (text string, err error) {
	if n < 1 || n > p.pages {
		return "", fmt.Errorf("page %d out of range 1..%d", n, p.pages)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract page %d: %v", n, r)
		}
	}()

	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}

	rows, rowErr := page.GetTextByRow()
	if rowErr == nil {
		var items []string
		for _, row := range rows {
			for _, t := range row.Content {
				items = append(items, t.S)
			}
		}
		if text := JoinItems(items); text != "" {
			return text, nil
		}
	}

	raw, err := page.GetPlainText(nil)
	if err != nil {
		if rowErr != nil {
			return "", fmt.Errorf("extract page %d: %w", n, errors.Join(rowErr, err))
		}
		return "", fmt.Errorf("extract page %d: %w", n, err)
	}
	return JoinItems(strings.Fields(raw)), nil
}

// JoinItems joins text items with single spaces. Whitespace inside an item
// is collapsed and blank items are dropped.
func JoinItems(items []string) string {
	words := make([]string, 0, len(items))
	for _, item := range items {
		words = append(words, strings.Fields(item)...)
	}
	return strings.Join(words, " ")
}

// StaticPages is a PageSource over already extracted page text.
type StaticPages []string

func (s StaticPages) NumPages() int { return len(s) }

func (s StaticPages) PageText(n int) (string, error) {
	if n < 1 || n > len(s) {
		return "", fmt.Errorf("page %d out of range 1..%d", n, len(s))
	}
	return s[n-1], nil
}
