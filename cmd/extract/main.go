// Command extract converts PDF sales reports to CSV datasets without
// starting the dashboard.
//
//	extract [-out DIR] [-combine FILE] [-workers N] report.pdf...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/extract"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

var errNoInput = errors.New("no PDF files given")

type options struct {
	outDir  string
	combine string
	workers int
	quiet   bool
	files   []string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.outDir, "out", "processed_data", "directory for the extracted CSV files")
	fs.StringVar(&opts.combine, "combine", "", "also write all extracted rows to this CSV file")
	fs.IntVar(&opts.workers, "workers", 4, "number of files extracted at once")
	fs.BoolVar(&opts.quiet, "quiet", false, "hide the progress bar")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.files = fs.Args()
	if len(opts.files) == 0 {
		return opts, errNoInput
	}
	if opts.workers < 1 {
		return opts, fmt.Errorf("workers must be at least 1, got %d", opts.workers)
	}
	for _, f := range opts.files {
		if !strings.EqualFold(filepath.Ext(f), ".pdf") {
			return opts, fmt.Errorf("%s: not a PDF file", f)
		}
	}
	return opts, nil
}

type outcome struct {
	path   string
	output string
	res    *extract.Result
	err    error
}

func csvName(outDir, pdfPath string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return filepath.Join(outDir, base+".csv")
}

// extractAll runs the pipeline over every file with at most workers in
// flight. A failing file is recorded in its outcome and does not stop the
// others.
func extractAll(ctx context.Context, p *extract.Pipeline, opts options, bar *progressbar.ProgressBar) []outcome {
	results := make([]outcome, len(opts.files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for i, path := range opts.files {
		g.Go(func() error {
			out := csvName(opts.outDir, path)
			res, err := p.ExtractFile(ctx, path, out)
			results[i] = outcome{path: path, output: out, res: res, err: err}
			bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func writeSummary(w io.Writer, results []outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tRECORDS\tPAGES\tTOTAL SALES\tACCURACY\tOUTPUT")
	for _, o := range results {
		if o.err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\terror: %v\n", filepath.Base(o.path), o.err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f\t%.2f%%\t%s\n",
			filepath.Base(o.path),
			o.res.Report.Records,
			o.res.Pages,
			o.res.Report.ExtractedTotal,
			o.res.Report.Accuracy,
			o.output,
		)
	}
	tw.Flush()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	logger := observability.NewLoggerTo(stderr, cfg.Logger)

	h := extract.Heuristics{
		ScaleUpBelow:   cfg.Analysis.ScaleUpBelow,
		ScaleUpFactor:  cfg.Analysis.ScaleUpFactor,
		OutlierCeiling: cfg.Analysis.OutlierCeiling,
		ExpectedTotal:  cfg.Analysis.ExpectedTotal,
	}
	pipeline := extract.NewPipeline(h, logger)

	var bar *progressbar.ProgressBar
	if opts.quiet {
		bar = progressbar.DefaultSilent(int64(len(opts.files)))
	} else {
		bar = progressbar.NewOptions64(int64(len(opts.files)),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("extracting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	results := extractAll(ctx, pipeline, opts, bar)
	bar.Finish()
	writeSummary(stdout, results)

	var (
		failed   int
		extracts []*models.Dataset
	)
	for _, o := range results {
		if o.err != nil {
			failed++
			logger.Error("extraction failed", "file", o.path, "error", o.err)
			continue
		}
		extracts = append(extracts, o.res.Dataset)
	}

	if opts.combine != "" && len(extracts) > 0 {
		combined := dataset.Combine(filepath.Base(opts.combine), extracts...)
		if err := dataset.WriteCSVFile(opts.combine, combined); err != nil {
			return fmt.Errorf("write combined dataset: %w", err)
		}
		fmt.Fprintf(stdout, "combined %d records into %s\n", combined.Len(), opts.combine)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("extract failed", "error", err)
		os.Exit(1)
	}
}
