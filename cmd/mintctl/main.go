package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/mintctl/service/config"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mintctl",
		Usage: "Create SPL tokens, mint supply and attach metadata on Solana",
		Description: `A command-line tool that submits token transactions for the keypair it is given.

Every command builds one transaction (two for launch), signs it with the
configured keypair, submits it and waits until it is confirmed or rejected.
Defaults target devnet; mainnet submissions ask for confirmation unless --yes.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			mintCommand(),
			createCommand(),
			metadataCommand(),
			launchCommand(),
			balanceCommand(),
			addressCommands(),
			runCommand(),
			versionCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "network-url",
				Aliases: []string{"u"},
				Usage:   "Solana JSON-RPC endpoint",
				EnvVars: []string{"NETWORK_URL"},
				Value:   config.DefaultNetworkURL,
			},
			&cli.StringFlag{
				Name:    "keypair",
				Aliases: []string{"k"},
				Usage:   "Path to the signer's keypair file",
				EnvVars: []string{"KEYPAIR_PATH"},
				Value:   solanasvc.DefaultKeypairPath,
			},
			&cli.StringFlag{
				Name:    "commitment",
				Usage:   "Commitment to wait for (processed, confirmed, finalized)",
				EnvVars: []string{"COMMITMENT"},
				Value:   "confirmed",
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often to poll signature status while waiting for confirmation",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   2 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "warn",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "Filter the JSON output with a jq expression",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip the mainnet confirmation prompt",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL for operation events (empty disables publishing)",
				EnvVars: []string{"NATS_URL"},
			},
			&cli.StringFlag{
				Name:    "pushgateway-url",
				Usage:   "Prometheus Pushgateway URL (empty disables pushing)",
				EnvVars: []string{"PUSHGATEWAY_URL"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "temporal-task-queue",
				Usage:   "Temporal task queue of the launch worker",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "mintctl-launch",
			},
		},
		// A bad filter must fail before anything is submitted.
		Before: func(c *cli.Context) error {
			if _, err := compileJQ(c.String("jq")); err != nil {
				return exitError(solanasvc.ConfigError("%w", err))
			}
			return nil
		},
		// main decides the exit code
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// exitError maps an operation error to an exit code by kind.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var opErr *solanasvc.OperationError
	if !errors.As(err, &opErr) {
		return cli.Exit(err.Error(), 1)
	}
	code := 1
	switch solanasvc.KindOf(err) {
	case "config":
		code = 2
	case "network":
		code = 3
	case "rejected":
		code = 4
	case "protocol":
		code = 5
	}
	return cli.Exit(err.Error(), code)
}
