package extract

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageSource yields the raw text of each page of a document. Pages are
// numbered from 1.
type PageSource interface {
	NumPages() int
	PageText(page int) (string, error)
}

// PDFSource reads page text from a PDF file. Text fragments are grouped
// into rows by their baseline and joined left to right, so each row of the
// report becomes one line.
type PDFSource struct {
	file   *os.File
	reader *pdf.Reader
}

func OpenPDF(path string) (*PDFSource, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &PDFSource{file: f, reader: r}, nil
}

func (s *PDFSource) Close() error {
	return s.file.Close()
}

func (s *PDFSource) NumPages() int {
	return s.reader.NumPage()
}

func (s *PDFSource) PageText(page int) (string, error) {
	p := s.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}

	// Higher baselines come first on the page.
	slices.SortStableFunc(rows, func(a, b *pdf.Row) int {
		switch {
		case a.Position > b.Position:
			return -1
		case a.Position < b.Position:
			return 1
		}
		return 0
	})

	var b strings.Builder
	for _, row := range rows {
		texts := make([]pdf.Text, 0, len(row.Content))
		for _, t := range row.Content {
			texts = append(texts, t)
		}
		line := joinRow(texts)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// joinRow concatenates the fragments of one row, inserting a space where
// the horizontal gap between fragments is wider than a fraction of the font
// size.
func joinRow(texts []pdf.Text) string {
	slices.SortStableFunc(texts, func(a, b pdf.Text) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})

	var b strings.Builder
	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			gap := t.X - (prev.X + prev.W)
			if gap > 0.2*t.FontSize && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return strings.TrimSpace(b.String())
}

// TextSource serves pre-extracted page texts, e.g. from a text dump of a
// report.
type TextSource []string

func (s TextSource) NumPages() int { return len(s) }

func (s TextSource) PageText(page int) (string, error) {
	if page < 1 || page > len(s) {
		return "", fmt.Errorf("page %d out of range", page)
	}
	return s[page-1], nil
}
