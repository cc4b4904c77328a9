// Package httpapi implements the stateless HTTP/JSON service (C8): POST
// /query, POST /schemas/load, POST /schemas/introspect, POST
// /schemas/draft, POST /schemas/discover-prompt, GET /health, GET
// /schemas. No per-request state is kept beyond the backend connection
// pool — every handler reads what it needs from the request body and the
// shared catalog/backend passed in at construction.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/discovery"
	"github.com/clickgraph/clickgraph/internal/logging"
	"github.com/clickgraph/clickgraph/internal/telemetry"
)

// Server holds the dependencies every handler needs.
type Server struct {
	catalog   *catalog.Catalog
	backend   *backend.Client
	discovery *discovery.Engine
	logger    *logging.Logger
	metrics   *telemetry.Metrics
}

// NewServer wires a Server against the process-wide catalog and backend
// client. disc may be nil if no backend is configured yet (the
// /schemas/introspect, /schemas/draft and /schemas/discover-prompt
// handlers then return an Unavailable error, HTTP 500, rather than
// panicking). metrics may be
// nil, in which case the server runs unobserved (e.g. in unit tests that
// don't care about counters).
func NewServer(cat *catalog.Catalog, be *backend.Client, disc *discovery.Engine, metrics *telemetry.Metrics) *Server {
	return &Server{catalog: cat, backend: be, discovery: disc, logger: logging.Component("httpapi"), metrics: metrics}
}

// NewRouter builds the chi.Mux for this Server, matching the teacher
// pack's router shape (chi, RequestID/RealIP/Recoverer middleware,
// go-chi/cors) seen in maraichr-codegraph's internal/api/router.go and
// the lake example's chi+cors pairing.
func (s *Server) NewRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/schemas", s.handleSchemasList)
	r.Post("/query", s.handleQuery)
	r.Post("/schemas/load", s.handleSchemaLoad)
	r.Post("/schemas/introspect", s.handleSchemaIntrospect)
	r.Post("/schemas/draft", s.handleSchemaDraft)
	r.Post("/schemas/discover-prompt", s.handleDiscoverPrompt)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(start, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", start.Status(),
			"bytes", start.BytesWritten())
	})
}
