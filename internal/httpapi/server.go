// Package httpapi exposes the REST surface: auth, firm and client routes,
// health and metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hrideshsrivastava/audit-bridge/internal/auth"
	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
	"github.com/Hrideshsrivastava/audit-bridge/internal/upload"
)

// Deps carries everything the server wires into its handlers.
type Deps struct {
	Config    *config.Config
	DB        *sqlx.DB
	Logger    observability.Logger
	Metrics   observability.Metrics
	Registry  *prometheus.Registry
	Tokens    *auth.Tokens
	Auth      *auth.Middleware
	Firms     *repository.FirmRepository
	Clients   *repository.ClientRepository
	Engage    *repository.EngagementRepository
	Documents *repository.DocumentRepository
	Pipeline  *upload.Pipeline
	Publisher queue.Publisher
}

type Server struct {
	deps Deps
	srv  *http.Server
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	s.srv = &http.Server{
		Addr:         deps.Config.HTTP.Addr,
		Handler:      s.router(),
		ReadTimeout:  deps.Config.HTTP.ReadTimeout,
		WriteTimeout: deps.Config.HTTP.WriteTimeout,
	}

	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestMetrics)

	r.Get("/health", s.handleHealth)
	if s.deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/firm/signup", s.handleFirmSignup)
		r.Post("/firm/login", s.handleFirmLogin)
		r.Post("/client/activate", s.handleClientActivate)
		r.Post("/client/login", s.handleClientLogin)
	})

	r.Route("/firm", func(r chi.Router) {
		r.Use(s.deps.Auth.Firm)
		r.Post("/create-client", s.handleCreateClient)
		r.Get("/dashboard", s.handleFirmDashboard)
		r.Get("/client/{clientID}", s.handleFirmClientDetail)
		r.Patch("/document/{documentID}", s.handleDocumentDecision)
		r.Patch("/document/{documentID}/due-date", s.handleDueDate)
	})

	r.Route("/client", func(r chi.Router) {
		r.Use(s.deps.Auth.Client)
		r.Get("/documents", s.handleClientDocuments)
		r.Get("/dashboard", s.handleClientDashboard)
		r.Post("/document/{documentID}/upload", s.handleUpload)
	})

	return r
}

func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.deps.Metrics.RecordHistogram("http.request_duration_ms",
			float64(time.Since(start).Milliseconds()),
			map[string]string{"method": r.Method})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.DB.PingContext(ctx); err != nil {
		s.deps.Logger.Error("Health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.deps.Logger.Info("HTTP server starting", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Logger.Info("HTTP server shutting down")
	return s.srv.Shutdown(ctx)
}
