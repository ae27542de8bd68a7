package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/cluster"
	"sales-dashboard/internal/dataset"
	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/extract"
	"sales-dashboard/internal/history"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/storage"
)

var ErrNoExtractedData = errors.New("no data could be extracted from the PDF")

// Processor turns uploaded files into analysed datasets and keeps the
// session history and metadata table in step.
type Processor struct {
	pipeline  *extract.Pipeline
	analyzer  *Analyzer
	clusterer *cluster.Clusterer
	history   *history.Store
	meta      *storage.MetadataStore
	files     *storage.Files
	logger    *slog.Logger
	now       func() time.Time
}

func NewProcessor(
	pipeline *extract.Pipeline,
	analyzer *Analyzer,
	clusterer *cluster.Clusterer,
	hist *history.Store,
	meta *storage.MetadataStore,
	files *storage.Files,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		pipeline:  pipeline,
		analyzer:  analyzer,
		clusterer: clusterer,
		history:   hist,
		meta:      meta,
		files:     files,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *Processor) History() *history.Store { return p.history }

// Process loads the uploaded file at path, analyses it and makes it the
// active dataset. filename is the name the user uploaded it under.
func (p *Processor) Process(ctx context.Context, filename, path string) (*models.Dataset, error) {
	start := time.Now()

	ds, err := p.load(ctx, filename, path)
	if err != nil {
		return nil, err
	}
	ds.SourceFilename = filename
	ds.UploadTime = p.now()

	ds = p.analyse(ctx, ds)
	p.history.Append(ds)
	p.saveMeta(ctx, ds)

	p.logger.InfoContext(ctx, "dataset processed",
		"filename", filename,
		"records", ds.Len(),
		"analysis_ok", ds.Analysis.Success,
		"clustering_ok", ds.Clustering.Success,
		"duration", time.Since(start),
	)
	return ds, nil
}

func (p *Processor) load(ctx context.Context, filename, path string) (*models.Dataset, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		res, err := p.pipeline.ExtractFile(ctx, path, p.files.ProcessedPath())
		if err != nil {
			return nil, apperrors.BadRequestWrap(err, "could not read the PDF file")
		}
		if res.Dataset.Len() == 0 {
			return nil, apperrors.InsufficientDataWrap(ErrNoExtractedData, ErrNoExtractedData.Error())
		}
		p.logger.InfoContext(ctx, "pdf extracted",
			"filename", filename,
			"pages", res.Pages,
			"skipped_pages", res.SkippedPages,
			"records", res.Report.Records,
			"accuracy", res.Report.Accuracy,
		)
		return res.Dataset, nil

	case ".csv":
		ds, err := dataset.ReadCSVFile(path, p.logger)
		if errors.Is(err, dataset.ErrNoSalesColumn) {
			return nil, apperrors.ValidationWrap(err, "the CSV file has no sales amount column")
		}
		if err != nil {
			return nil, apperrors.BadRequestWrap(err, "could not read the CSV file")
		}
		return ds, nil
	}
	return nil, apperrors.Unsupported(fmt.Sprintf("unsupported file type %q, upload a PDF or CSV file", filepath.Ext(filename)))
}

// analyse runs sales analysis and clustering side by side. Both read ds
// without modifying it and neither can fail the upload.
func (p *Processor) analyse(ctx context.Context, ds *models.Dataset) *models.Dataset {
	var (
		analysis   *models.AnalysisResult
		clustering *models.ClusteringResult
	)

	var g errgroup.Group
	g.Go(func() error {
		analysis = p.analyzer.Analyze(ctx, ds)
		return nil
	})
	g.Go(func() error {
		clustering = p.clusterer.Perform(ctx, ds)
		return nil
	})
	_ = g.Wait()

	return ds.WithResults(analysis, clustering)
}

// Combine merges every dataset in the history into a new one, analyses it
// and makes it active.
func (p *Processor) Combine(ctx context.Context) (*models.Dataset, error) {
	all := p.history.All()
	if len(all) < 2 {
		return nil, apperrors.InsufficientData("at least two datasets are needed to combine")
	}

	name := "Combined_" + p.now().Format("20060102_150405")
	combined := dataset.Combine(name, all...)
	combined.UploadTime = p.now()

	combined = p.analyse(ctx, combined)
	p.history.Append(combined)
	p.saveMeta(ctx, combined)

	p.logger.InfoContext(ctx, "datasets combined", "name", name, "sources", len(all), "records", combined.Len())
	return combined, nil
}

// Select activates the dataset at index i.
func (p *Processor) Select(i int) (*models.Dataset, error) {
	ds, err := p.history.Select(i)
	if errors.Is(err, history.ErrOutOfRange) {
		return nil, apperrors.NotFound(err.Error())
	}
	return ds, err
}

// RemoveActive drops the active dataset from the history and the metadata
// table.
func (p *Processor) RemoveActive(ctx context.Context) (*models.Dataset, error) {
	ds, err := p.history.RemoveActive()
	if errors.Is(err, history.ErrEmpty) {
		return nil, apperrors.NotFound(err.Error())
	}
	if err != nil {
		return nil, err
	}
	if err := p.meta.Delete(ctx, ds.ID); err != nil {
		p.logger.WarnContext(ctx, "failed to delete dataset metadata", "id", ds.ID, "error", err)
	}
	return ds, nil
}

// Clear empties the history and the metadata table.
func (p *Processor) Clear(ctx context.Context) int {
	n := p.history.Clear()
	if _, err := p.meta.Clear(ctx); err != nil {
		p.logger.WarnContext(ctx, "failed to clear dataset metadata", "error", err)
	}
	return n
}

func (p *Processor) saveMeta(ctx context.Context, ds *models.Dataset) {
	if err := p.meta.Save(ctx, storage.MetaFromDataset(ds)); err != nil {
		p.logger.WarnContext(ctx, "failed to save dataset metadata", "id", ds.ID, "error", err)
	}
}
