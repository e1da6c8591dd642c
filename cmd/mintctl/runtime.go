package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/AlecAivazis/survey/v2"
	"github.com/brojonat/mintctl/service/config"
	"github.com/brojonat/mintctl/service/issuer"
	"github.com/brojonat/mintctl/service/metrics"
	natspkg "github.com/brojonat/mintctl/service/nats"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/brojonat/mintctl/service/temporal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// launcher runs a launch on a Temporal worker.
type launcher interface {
	ExecuteLaunch(ctx context.Context, input temporal.LaunchTokenInput) (*temporal.LaunchTokenResult, error)
	Close()
}

// Constructors for external connections; tests replace them.
var (
	newRPCClient = solanasvc.NewRPCClient

	newPublisher = func(url string, m *metrics.Metrics, logger *slog.Logger) (natspkg.Publisher, error) {
		return natspkg.NewPublisher(url, m, logger)
	}

	newLauncher = func(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (launcher, error) {
		return temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, m, logger)
	}

	confirmSubmit = func(message string) (bool, error) {
		ok := false
		err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
		return ok, err
	}
)

// runtime holds everything one command invocation needs.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	publisher natspkg.Publisher
	orch      *issuer.Orchestrator
}

// globalConfig builds a configuration from the global flags. Command flags
// fill in the operation fields.
func globalConfig(c *cli.Context) *config.Config {
	return &config.Config{
		NetworkURL:        c.String("network-url"),
		KeypairPath:       c.String("keypair"),
		Commitment:        c.String("commitment"),
		PollInterval:      c.Duration("poll-interval"),
		Decimals:          config.DefaultDecimals,
		InitialSupply:     config.DefaultInitialSupply,
		MintSpace:         config.MintAccountSpace,
		LogLevel:          c.String("log-level"),
		NATSURL:           c.String("nats-url"),
		PushgatewayURL:    c.String("pushgateway-url"),
		TemporalHost:      c.String("temporal-host"),
		TemporalNamespace: c.String("temporal-namespace"),
		TemporalTaskQueue: c.String("temporal-task-queue"),
	}
}

// newRuntime validates cfg, loads the signer and connects the orchestrator.
// When the command submits transactions, mainnet needs confirmation unless
// --yes is set.
func newRuntime(c *cli.Context, cfg *config.Config, submits bool) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	commitment, err := solanasvc.ParseCommitment(cfg.Commitment)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.LogLevel, c.App.ErrWriter)

	signer, err := solanasvc.LoadKeypair(cfg.KeypairPath)
	if err != nil {
		return nil, err
	}

	if submits && solanasvc.IsMainnet(cfg.NetworkURL) && !c.Bool("yes") {
		ok, err := confirmSubmit(fmt.Sprintf("Submit to mainnet (%s) as %s?", cfg.NetworkURL, signer.PublicKey()))
		if err != nil {
			return nil, solanasvc.ConfigError("confirmation prompt failed: %w", err)
		}
		if !ok {
			return nil, solanasvc.ConfigError("aborted: mainnet submission not confirmed")
		}
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	endpoint := solanasvc.EndpointLabel(cfg.NetworkURL)

	client := solanasvc.NewClient(newRPCClient(cfg.NetworkURL), endpoint, m, logger,
		solanasvc.WithCommitment(commitment),
		solanasvc.WithPollInterval(cfg.PollInterval),
	)

	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		publisher, err = newPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			// events are best effort
			logger.Warn("failed to connect to NATS, continuing without events", "url", cfg.NATSURL, "error", err)
			publisher = nil
		}
	}

	logger.Debug("runtime ready",
		"endpoint", endpoint,
		"signer", signer.PublicKey().String(),
		"commitment", cfg.Commitment,
	)

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		metrics:   m,
		publisher: publisher,
		orch: issuer.New(issuer.Config{
			Chain:     client,
			Signer:    signer,
			Publisher: publisher,
			Network:   endpoint,
			Out:       statusWriter(c),
			Logger:    logger,
		}),
	}, nil
}

// Close pushes metrics and releases connections.
func (r *runtime) Close(ctx context.Context) {
	if err := metrics.Push(ctx, r.cfg.PushgatewayURL, "mintctl", r.registry); err != nil {
		r.logger.Warn("failed to push metrics", "error", err)
	}
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			r.logger.Warn("failed to close NATS publisher", "error", err)
		}
	}
}

// statusWriter is where human-readable status lines go. With JSON output
// they move to stderr so stdout stays machine-readable.
func statusWriter(c *cli.Context) io.Writer {
	if jsonOutput(c) {
		return c.App.ErrWriter
	}
	return c.App.Writer
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string, w io.Writer) *slog.Logger {
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
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}
