package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Result is the dataset extracted from one document and its validation
// report.
type Result struct {
	Dataset *models.Dataset
	Report  ValidationReport
	Pages   int
	// SkippedPages counts pages that yielded no text.
	SkippedPages int
}

// Pipeline extracts product records from sales-report documents. A Pipeline
// holds no per-run state and may be shared.
type Pipeline struct {
	heuristics Heuristics
	logger     *slog.Logger
	now        func() time.Time
}

func NewPipeline(h Heuristics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{heuristics: h, logger: logger, now: time.Now}
}

// ExtractFile extracts the PDF at pdfPath and writes the resulting dataset
// to csvPath before returning it.
func (p *Pipeline) ExtractFile(ctx context.Context, pdfPath, csvPath string) (*Result, error) {
	src, err := OpenPDF(pdfPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	res, err := p.Extract(ctx, src)
	if err != nil {
		return nil, err
	}
	res.Dataset.SourceFilename = filepath.Base(pdfPath)

	if err := p.writeSnapshot(res.Dataset, csvPath); err != nil {
		return nil, err
	}
	return res, nil
}

// ExtractToCSV runs Extract and writes the dataset snapshot to csvPath.
func (p *Pipeline) ExtractToCSV(ctx context.Context, src PageSource, csvPath string) (*Result, error) {
	res, err := p.Extract(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := p.writeSnapshot(res.Dataset, csvPath); err != nil {
		return nil, err
	}
	return res, nil
}

// Extract parses every page of src in page order. Pages without text are
// skipped and a document with no product lines yields an empty dataset
// with the canonical columns.
func (p *Pipeline) Extract(ctx context.Context, src PageSource) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "extract.pdf")
	defer span.End(ctx, p.logger)

	now := p.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	parser := newLineParser(p.heuristics, date)

	res := &Result{Pages: src.NumPages()}
	var records []models.ProductRecord

	for page := 1; page <= res.Pages; page++ {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			return nil, err
		}

		text, err := src.PageText(page)
		if err != nil {
			p.logger.Warn("skipping unreadable page", "page", page, "error", err)
			res.SkippedPages++
			continue
		}
		if text == "" {
			res.SkippedPages++
			continue
		}

		accepted := 0
		pageTotal := 0.0
		for _, line := range CandidateLines(text) {
			rec, ok := parser.parse(line)
			if !ok {
				continue
			}
			p.logger.Debug("product line accepted",
				"product", rec.Name,
				"quantity", rec.Quantity.Float64,
				"sales", rec.Sales,
				"category", rec.Category,
			)
			records = append(records, rec)
			accepted++
			pageTotal += rec.Sales
		}
		p.logger.Info("page processed", "page", page, "products", accepted, "page_total", pageTotal)
	}

	ds := &models.Dataset{
		ID:         uuid.NewString(),
		Columns:    models.CanonicalSchema(),
		UploadTime: now,
	}

	if len(records) == 0 {
		p.logger.Warn("no product lines found", "pages", res.Pages, "skipped_pages", res.SkippedPages)
		ds.Records = []models.ProductRecord{}
		res.Dataset = ds
		res.Report = ValidationReport{ExpectedTotal: p.heuristics.ExpectedTotal}
		return res, nil
	}

	ds.Records, res.Report = p.heuristics.Validate(records, p.logger)
	res.Dataset = ds
	span.SetTag("records", fmt.Sprint(len(ds.Records)))
	return res, nil
}

func (p *Pipeline) writeSnapshot(ds *models.Dataset, csvPath string) error {
	if err := dataset.WriteCSVFile(csvPath, ds); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	ds.SnapshotPath = csvPath
	return nil
}
