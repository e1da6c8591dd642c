package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/mintctl/service/config"
	"github.com/brojonat/mintctl/service/issuer"
	"github.com/brojonat/mintctl/service/metrics"
	natspkg "github.com/brojonat/mintctl/service/nats"
	"github.com/brojonat/mintctl/service/solana"
	"github.com/brojonat/mintctl/service/temporal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoadWorker()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting launch worker",
		"network_url", solana.EndpointLabel(cfg.NetworkURL),
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	signer, err := solana.LoadKeypair(cfg.KeypairPath)
	if err != nil {
		logger.Error("failed to load keypair", "error", err)
		os.Exit(1)
	}

	commitment, err := solana.ParseCommitment(cfg.Commitment)
	if err != nil {
		logger.Error("invalid commitment", "error", err)
		os.Exit(1)
	}

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(prometheus.DefaultRegisterer)
	logger.Info("Prometheus metrics collector initialized")

	// Start metrics HTTP server
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPMetricsMiddleware(metricsCollector, "/metrics")(promhttp.Handler()))
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	endpoint := solana.EndpointLabel(cfg.NetworkURL)
	solanaClient := solana.NewClient(solana.NewRPCClient(cfg.NetworkURL), endpoint, metricsCollector, logger,
		solana.WithCommitment(commitment),
		solana.WithPollInterval(cfg.PollInterval),
	)
	logger.Info("initialized solana RPC client", "endpoint", endpoint, "commitment", cfg.Commitment)

	// NATS is optional; events are best effort
	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	orchestrator := issuer.New(issuer.Config{
		Chain:     solanaClient,
		Signer:    signer,
		Publisher: publisher,
		Network:   endpoint,
		Logger:    logger,
	})

	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Issuer:            orchestrator,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"signer", signer.PublicKey().String(),
		"endpoint", endpoint,
		"task_queue", cfg.TemporalTaskQueue,
	)

	// Start worker in background
	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- worker.Start()
	}()

	// Wait for shutdown signal or worker error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
		worker.Stop()
		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
