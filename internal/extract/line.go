package extract

import (
	"database/sql"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

// CurrencyMarker prefixes every sales figure in the source reports.
const CurrencyMarker = "Rp"

// headerKeywords mark report headers and footers. Matching is
// case-sensitive.
var headerKeywords = []string{"SKU", "Outlet", "Kategori", "Laporan", "Periode", "Zona", "Pencarian"}

// CandidateLines splits page text into trimmed lines and drops blank lines
// and lines carrying a header or footer keyword.
func CandidateLines(pageText string) []string {
	var lines []string
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isHeaderLine(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isHeaderLine(line string) bool {
	for _, keyword := range headerKeywords {
		if strings.Contains(line, keyword) {
			return true
		}
	}
	return false
}

// LineFields are the raw fields recovered from one report line.
type LineFields struct {
	Name     string
	Quantity float64
	Sales    float64
}

// ParseLine recovers name, quantity and sales amount from a candidate line.
// ok is false when the line has no currency marker or no name before it.
func (h Heuristics) ParseLine(line string) (fields LineFields, ok bool) {
	if !strings.Contains(line, CurrencyMarker) {
		return LineFields{}, false
	}

	tokens := strings.Fields(line)
	name := productName(tokens)
	if name == "" {
		return LineFields{}, false
	}

	return LineFields{
		Name:     name,
		Quantity: h.findQuantity(tokens),
		Sales:    h.findSalesAmount(tokens),
	}, true
}

func productName(tokens []string) string {
	var parts []string
	for _, tok := range tokens {
		if strings.HasPrefix(tok, CurrencyMarker) {
			break
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " ")
}

func (h Heuristics) findQuantity(tokens []string) float64 {
	for _, tok := range tokens {
		if quantityRe.MatchString(tok) {
			return h.ParseAmount(tok)
		}
	}
	return 0
}

// findSalesAmount joins the first currency token with the purely numeric
// tokens after it, which recovers figures the PDF split with spaces.
func (h Heuristics) findSalesAmount(tokens []string) float64 {
	for i, tok := range tokens {
		if !strings.HasPrefix(tok, CurrencyMarker) {
			continue
		}
		var b strings.Builder
		b.WriteString(tok)
		for _, next := range tokens[i+1:] {
			if !amountTailRe.MatchString(next) {
				break
			}
			b.WriteString(next)
		}
		return h.ParseAmount(b.String())
	}
	return 0
}

// lineParser turns candidate lines into records for one extraction run.
// The seen set makes the first occurrence of a product name win.
type lineParser struct {
	heuristics Heuristics
	date       time.Time
	seen       map[string]struct{}
}

func newLineParser(h Heuristics, date time.Time) *lineParser {
	return &lineParser{heuristics: h, date: date, seen: make(map[string]struct{})}
}

func (p *lineParser) parse(line string) (models.ProductRecord, bool) {
	fields, ok := p.heuristics.ParseLine(line)
	if !ok {
		return models.ProductRecord{}, false
	}
	if _, dup := p.seen[fields.Name]; dup {
		return models.ProductRecord{}, false
	}
	if fields.Sales <= 0 {
		return models.ProductRecord{}, false
	}
	p.seen[fields.Name] = struct{}{}

	return models.ProductRecord{
		Name:     fields.Name,
		Quantity: sql.NullFloat64{Float64: fields.Quantity, Valid: true},
		Sales:    fields.Sales,
		Category: Categorize(fields.Name),
		Date:     p.date,
	}, true
}
