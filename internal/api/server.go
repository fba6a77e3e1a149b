package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/llm"
	"github.com/dgallion1/docinsight/internal/pipeline"
)

// Server is the HTTP API server for docinsight.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *llm.Stats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil when no
// external service is configured.
func NewServer(orch *pipeline.Orchestrator, stats *llm.Stats, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		orchestrator: orch,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/analyze", s.handleAnalyze)
		r.Get("/api/analyze/{jobID}/status", s.handleStatus)
		r.Get("/api/analyze/{jobID}/result", s.handleResult)
		r.Post("/api/analyze/{jobID}/evaluate", s.handleEvaluate)

		r.Get("/api/reports", s.handleListReports)
		r.Delete("/api/reports/{jobID}", s.handleDeleteReport)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
