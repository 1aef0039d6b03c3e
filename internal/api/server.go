// Package api exposes the journaling engine over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cognicore/reverie/pkg/reverie"
)

// Options configures the HTTP handler.
type Options struct {
	Service *reverie.Reverie
	Logger  *zap.Logger
	// Registry receives the HTTP metrics and is served on /metrics. A nil
	// registry selects a private one.
	Registry *prometheus.Registry
}

// Server routes HTTP requests to the engine.
type Server struct {
	svc     *reverie.Reverie
	log     *zap.Logger
	metrics *httpMetrics
	router  chi.Router
}

// NewServer builds the router with its middleware stack.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		svc:     opts.Service,
		log:     opts.Logger,
		metrics: newHTTPMetrics(opts.Registry),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(s.metrics.instrument)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/thoughts", func(r chi.Router) {
			r.Get("/", s.listThoughts)
			r.Post("/", s.addThought)
			r.Get("/{id}", s.getThought)
			r.Put("/{id}", s.updateThought)
			r.Delete("/{id}", s.deleteThought)
			r.Get("/{id}/related", s.related)
		})
		r.Post("/analyze", s.analyze)
		r.Post("/categorize", s.categorize)

		r.Route("/clusters", func(r chi.Router) {
			r.Get("/", s.listClusters)
			r.Post("/refresh", s.refreshClusters)
			r.Get("/{id}", s.getCluster)
			r.Get("/{id}/thoughts", s.clusterThoughts)
			r.Get("/{id}/children", s.childClusters)
			r.Post("/{id}/adjust", s.adjustCluster)
		})

		r.Get("/search", s.search)
		r.Get("/relevance", s.relevance)
		r.Get("/recap", s.recap)
		r.Get("/export", s.export)
		r.Post("/import", s.importJournal)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
