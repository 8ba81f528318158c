package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus instruments for botmeter.
type Metrics struct {
	LinesSubmitted    *prometheus.CounterVec
	EntriesRecognized *prometheus.CounterVec
	BotRequests       *prometheus.CounterVec
	StoreErrors       prometheus.Counter
	PublishErrors     *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates and registers all botmeter metrics on reg. Pass a fresh
// registry in tests to avoid duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botmeter_lines_submitted_total",
				Help: "Raw log lines submitted per site",
			},
			[]string{"site"},
		),
		EntriesRecognized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botmeter_entries_recognized_total",
				Help: "Log lines successfully parsed per site",
			},
			[]string{"site"},
		),
		BotRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botmeter_bot_requests_total",
				Help: "Requests classified as bot traffic by site and category",
			},
			[]string{"site", "category"},
		),
		StoreErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "botmeter_store_errors_total",
				Help: "Errors writing classified records to the store",
			},
		),
		PublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botmeter_publish_errors_total",
				Help: "Errors forwarding records to subscribers by publisher",
			},
			[]string{"publisher"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botmeter_http_requests_total",
				Help: "API requests by endpoint, method and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botmeter_http_duration_seconds",
				Help:    "API request duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method"},
		),
	}
	reg.MustRegister(
		m.LinesSubmitted,
		m.EntriesRecognized,
		m.BotRequests,
		m.StoreErrors,
		m.PublishErrors,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Config holds settings for the dedicated metrics server.
type Config struct {
	Enabled bool
	Addr    string
}

// Server exposes /metrics on its own listener, apart from the API server.
type Server struct {
	server *http.Server
	config Config
	log    *zap.Logger
}

func NewServer(cfg Config, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &Server{
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		config: cfg,
		log:    log,
	}
}

func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("metrics server disabled")
		return nil
	}
	go func() {
		s.log.Info("metrics server listening", zap.String("addr", s.config.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	return s.server.Shutdown(ctx)
}
