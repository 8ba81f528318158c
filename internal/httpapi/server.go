// Package httpapi is the HTTP surface over the ingest service: log uploads
// in, aggregate metrics and policy documents out.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shortontech/botmeter/internal/ingest"
	"github.com/shortontech/botmeter/internal/metrics"
)

// Options tune the API server independently of the wider config package.
type Options struct {
	MaxBodyBytes int64
	SitemapURL   string
}

// Server holds the handler dependencies.
type Server struct {
	svc  *ingest.Service
	opts Options
	m    *metrics.Metrics
	log  *zap.Logger
}

func NewServer(svc *ingest.Service, opts Options, m *metrics.Metrics, log *zap.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}
	return &Server{svc: svc, opts: opts, m: m, log: log}
}

// Router builds the chi router with logging, metrics and CORS middleware
// applied to every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(s.metricsMiddleware)
	r.Use(cors)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/v1/sites/{site}", func(r chi.Router) {
		r.Post("/logs", s.handleIngest)
		r.Get("/overview", s.handleOverview)
		r.Get("/costs", s.handleCosts)
		r.Get("/robots.txt", s.handleRobots)
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("ua", r.UserAgent()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		s.m.HTTPRequests.WithLabelValues(endpoint, r.Method, strconv.Itoa(rec.status)).Inc()
		s.m.HTTPDuration.WithLabelValues(endpoint, r.Method).Observe(time.Since(start).Seconds())
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
