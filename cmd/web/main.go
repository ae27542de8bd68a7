package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/cluster"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/extract"
	"sales-dashboard/internal/history"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/storage"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	openTimeout   = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

// handleDashboard renders the dashboard shell; panels load over SSE.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func heuristics(a config.AnalysisConfig) extract.Heuristics {
	return extract.Heuristics{
		ScaleUpBelow:   a.ScaleUpBelow,
		ScaleUpFactor:  a.ScaleUpFactor,
		OutlierCeiling: a.OutlierCeiling,
		ExpectedTotal:  a.ExpectedTotal,
	}
}

func clusterOptions(a config.AnalysisConfig) cluster.Options {
	return cluster.Options{
		MaxClusters: a.MaxClusters,
		Restarts:    a.KMeansRestarts,
		MaxIter:     a.KMeansMaxIter,
		Seed:        a.Seed,
		Thresholds: cluster.Thresholds{
			Premium:     a.SegmentThresholds.Premium,
			HighValue:   a.SegmentThresholds.HighValue,
			MediumValue: a.SegmentThresholds.MediumValue,
		},
	}
}

// buildDeps opens the metadata store and upload directories and wires the
// processing services. The caller owns the returned store.
func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (server.Deps, error) {
	meta, err := storage.OpenMetadata(ctx, cfg.Storage.MetadataDB)
	if err != nil {
		return server.Deps{}, fmt.Errorf("open metadata store: %w", err)
	}

	files, err := storage.NewFiles(cfg.Storage.UploadDir, cfg.Storage.ProcessedDir)
	if err != nil {
		meta.Close()
		return server.Deps{}, fmt.Errorf("prepare storage directories: %w", err)
	}

	processor := services.NewProcessor(
		extract.NewPipeline(heuristics(cfg.Analysis), logger),
		services.NewAnalyzer(cfg.Analysis.TopN, logger),
		cluster.New(clusterOptions(cfg.Analysis), logger),
		history.NewStore(),
		meta,
		files,
		logger,
	)

	return server.Deps{
		Processor:      processor,
		Metadata:       meta,
		Files:          files,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	deps, err := buildDeps(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to initialise storage", "error", err)
		os.Exit(1)
	}
	logger.Info("storage ready",
		"metadata_db", cfg.Storage.MetadataDB,
		"upload_dir", cfg.Storage.UploadDir,
		"processed_dir", cfg.Storage.ProcessedDir,
	)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(deps, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("closing metadata store")
		return deps.Metadata.Close()
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
