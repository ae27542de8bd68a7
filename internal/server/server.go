package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/storage"
)

type Server struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	apiHandlers    *handlers.APIHandlers
	sseHandlers    *handlers.SSEHandlers
	uploadHandlers *handlers.UploadHandlers
	maxUploadBytes int64
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// Deps are the services the routes are served from.
type Deps struct {
	Processor      *services.Processor
	Metadata       *storage.MetadataStore
	Files          *storage.Files
	MaxUploadBytes int64
}

func NewServer(deps Deps, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		logger:         logger,
		apiHandlers:    handlers.NewAPIHandlers(deps.Processor, deps.Metadata, logger),
		sseHandlers:    handlers.NewSSEHandlers(deps.Processor.History(), logger),
		uploadHandlers: handlers.NewUploadHandlers(deps.Processor, deps.Files, deps.MaxUploadBytes, logger),
		maxUploadBytes: deps.MaxUploadBytes,
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Pages
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /upload", s.uploadHandlers.HandleForm)
	s.mux.Handle("POST /upload", middleware.BodyLimit(s.maxUploadBytes, s.logger)(
		http.HandlerFunc(s.uploadHandlers.HandleUpload)))
	s.mux.HandleFunc("GET /export", s.apiHandlers.HandleExport)

	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/analysis", s.apiHandlers.HandleAnalysis)
	s.mux.HandleFunc("GET /api/clustering", s.apiHandlers.HandleClustering)
	s.mux.HandleFunc("GET /api/history", s.apiHandlers.HandleHistory)
	s.mux.HandleFunc("POST /api/history/{index}/select", s.apiHandlers.HandleSelect)
	s.mux.HandleFunc("POST /api/history/combine", s.apiHandlers.HandleCombine)
	s.mux.HandleFunc("DELETE /api/history/active", s.apiHandlers.HandleRemoveActive)
	s.mux.HandleFunc("DELETE /api/history", s.apiHandlers.HandleClearHistory)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/charts", s.sseHandlers.HandleCharts)
	s.mux.HandleFunc("GET /sse/segments", s.sseHandlers.HandleSegments)
	s.mux.HandleFunc("GET /sse/history", s.sseHandlers.HandleHistory)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
