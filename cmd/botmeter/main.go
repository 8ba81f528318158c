package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shortontech/botmeter/internal/cost"
	"github.com/shortontech/botmeter/internal/detect"
	"github.com/shortontech/botmeter/internal/httpapi"
	"github.com/shortontech/botmeter/internal/ingest"
	"github.com/shortontech/botmeter/internal/metrics"
	"github.com/shortontech/botmeter/internal/publish"
	"github.com/shortontech/botmeter/internal/store"
	"github.com/shortontech/botmeter/pkg/config"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	detector := detect.NewDetector(cfg.Signatures())
	calc := cost.NewCalculator(cfg.Providers, cfg.Multipliers)
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}

	publishers, err := startPublishers(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("start publishers", zap.Error(err))
	}

	svc := ingest.NewService(detector, calc, st, publishers, m, logger)
	api := httpapi.NewServer(svc, httpapi.Options{
		MaxBodyBytes: cfg.MaxBodyBytes,
		SitemapURL:   cfg.SitemapURL,
	}, m, logger)

	metricsSrv := metrics.NewServer(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Addr:    cfg.MetricsAddr,
	}, logger)
	_ = metricsSrv.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      api.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("botmeter listening", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	for _, p := range publishers {
		if err := p.Close(); err != nil {
			logger.Warn("close publisher", zap.String("publisher", p.Name()), zap.Error(err))
		}
	}
	if err := st.Close(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.PGDSN == "" {
		logger.Info("no PG_DSN set, using in-memory store")
		return store.NewMemStore(), nil
	}
	pg, err := store.NewPGStore(store.PGConfig{DSN: cfg.PGDSN, Table: cfg.PGTable})
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func startPublishers(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]publish.Publisher, error) {
	var pubs []publish.Publisher
	for _, name := range cfg.Publishers {
		switch name {
		case "log":
			pubs = append(pubs, publish.NewLogPublisher(logger))
		case "kafka":
			pubs = append(pubs, publish.NewKafkaPublisher(publish.KafkaConfig{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaTopic,
			}, logger))
		default:
			logger.Warn("unknown publisher, skipping", zap.String("publisher", name))
		}
	}
	for _, p := range pubs {
		if err := p.Start(ctx); err != nil {
			return nil, err
		}
	}
	return pubs, nil
}
