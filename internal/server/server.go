// Package server exposes the order resolver over HTTP.
//
// Routes:
//
//	POST   /v1/orders/resolve        transcript → order (422 when unresolvable)
//	POST   /v1/orders/submit         forward a confirmed order to the kitchen
//	GET    /v1/catalog               current catalog snapshot
//	GET    /v1/catalog/dishes        all dishes incl. unavailable (store only)
//	POST   /v1/catalog/dishes        add a dish (store only)
//	PUT    /v1/catalog/dishes/{id}   replace a dish (store only)
//	DELETE /v1/catalog/dishes/{id}   remove a dish (store only)
//	POST   /v1/feedback              record which dish a misheard name meant
//	GET    /healthz, /readyz         liveness and readiness
//	GET    /metrics                  Prometheus scrape endpoint
//
// Error responses are JSON objects {"error": "...", "code": "..."} and carry
// the request's correlation id.
package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/voiceorder/internal/catalog"
	"github.com/MrWong99/voiceorder/internal/feedback"
	"github.com/MrWong99/voiceorder/internal/health"
	"github.com/MrWong99/voiceorder/internal/observe"
	"github.com/MrWong99/voiceorder/internal/submit"
	"github.com/MrWong99/voiceorder/internal/transcript"
)

const (
	// maxBodyBytes bounds request bodies. Transcripts are a sentence or two.
	maxBodyBytes = 64 << 10

	requestTimeout = 30 * time.Second
)

// Option is a functional option for [New].
type Option func(*Server)

// WithStore enables the dish management routes on store. Without it the
// catalog is read-only over HTTP.
func WithStore(store catalog.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithPublisher enables order submission. Without it /v1/orders/submit
// answers 503.
func WithPublisher(p submit.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithFeedback logs every resolution to rec and enables /v1/feedback.
func WithFeedback(rec feedback.Recorder) Option {
	return func(s *Server) { s.feedback = rec }
}

// WithHealth mounts h's /healthz and /readyz routes. Defaults to a handler
// without readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// WithMetrics sets the metrics used by the request middleware. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMetricsHandler overrides the /metrics handler. Defaults to
// [promhttp.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metricsHandler = h
		}
	}
}

// Server is the HTTP API. It implements [http.Handler] and is safe for
// concurrent use. The resolution pipeline can be swapped at runtime with
// [Server.SetPipeline].
type Server struct {
	router *chi.Mux

	pipeline  atomic.Pointer[transcript.Pipeline]
	catalog   catalog.Source
	store     catalog.Store
	publisher submit.Publisher
	feedback  feedback.Recorder

	health         *health.Handler
	metrics        *observe.Metrics
	metricsHandler http.Handler
}

// Compile-time interface check.
var _ http.Handler = (*Server)(nil)

// New builds the API over pipeline and the catalog snapshot source src.
func New(pipeline *transcript.Pipeline, src catalog.Source, opts ...Option) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		catalog:        src,
		health:         health.New(),
		metrics:        observe.DefaultMetrics(),
		metricsHandler: promhttp.Handler(),
	}
	for _, o := range opts {
		o(s)
	}
	s.pipeline.Store(pipeline)
	s.routes()
	return s
}

// SetPipeline atomically replaces the resolution pipeline. In-flight
// requests finish on the pipeline they started with.
func (s *Server) SetPipeline(p *transcript.Pipeline) {
	if p != nil {
		s.pipeline.Store(p)
	}
}

// Pipeline returns the active resolution pipeline.
func (s *Server) Pipeline() *transcript.Pipeline {
	return s.pipeline.Load()
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	s.health.Register(r)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.RequestSize(maxBodyBytes))

		r.Post("/orders/resolve", s.handleResolve)
		r.Post("/orders/submit", s.handleSubmit)
		r.Post("/feedback", s.handleFeedback)

		r.Get("/catalog", s.handleCatalog)
		r.Route("/catalog/dishes", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleListDishes)
			r.Post("/", s.handleAddDish)
			r.Put("/{id}", s.handleUpdateDish)
			r.Delete("/{id}", s.handleRemoveDish)
		})
	})
}

// requireStore answers 405 for dish management when the catalog is
// read-only.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			writeError(w, r, http.StatusMethodNotAllowed, "read_only_catalog", "catalog is read-only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
