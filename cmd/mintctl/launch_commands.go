package main

import (
	"fmt"

	"github.com/brojonat/mintctl/service/config"
	"github.com/brojonat/mintctl/service/issuer"
	"github.com/brojonat/mintctl/service/metadata"
	"github.com/brojonat/mintctl/service/metrics"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/brojonat/mintctl/service/temporal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func launchCommand() *cli.Command {
	flags := append(createFlags(), metadataFlags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:  "temporal",
		Usage: "Run the launch as a Temporal workflow on a mintctl worker",
	})

	return &cli.Command{
		Name:  "launch",
		Usage: "Create a mint and attach metadata to it",
		Description: `Runs create then metadata as two transactions, each with its own blockhash.
The metadata payload is validated before anything is submitted.

With --temporal the launch runs on a worker, which signs with its own keypair.`,
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg := globalConfig(c)
			params, err := createParams(c, cfg)
			if err != nil {
				return exitError(err)
			}
			data, err := loadMetadata(c, c.String("metadata-file"))
			if err != nil {
				return exitError(err)
			}

			if c.Bool("temporal") {
				return launchOnWorker(c, cfg, params, data)
			}

			rt, err := newRuntime(c, cfg, true)
			if err != nil {
				return exitError(err)
			}
			defer rt.Close(c.Context)

			outcome, err := rt.orch.Launch(c.Context, params, data)
			if err != nil {
				if outcome != nil && outcome.Create != nil {
					fmt.Fprintf(c.App.ErrWriter, "Mint %s was created but metadata was not attached\n", outcome.Create.Mint)
				}
				return exitError(err)
			}
			return printResult(c, outcome)
		},
	}
}

// launchOnWorker starts LaunchTokenWorkflow and waits for its result.
func launchOnWorker(c *cli.Context, cfg *config.Config, params issuer.CreateParams, data metadata.Data) error {
	if err := cfg.Validate(); err != nil {
		return exitError(err)
	}
	if err := data.Validate(); err != nil {
		return exitError(solanasvc.Annotate(err, config.OperationLaunch, ""))
	}

	logger := setupLogger(cfg.LogLevel, c.App.ErrWriter)
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	defer func() {
		if err := metrics.Push(c.Context, cfg.PushgatewayURL, "mintctl", registry); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}()

	l, err := newLauncher(cfg, m, logger)
	if err != nil {
		return exitError(solanasvc.NetworkError(config.OperationLaunch, "", err))
	}
	defer l.Close()

	fmt.Fprintf(statusWriter(c), "Launching %q (%s) on task queue %s\n", data.Name, data.Symbol, cfg.TemporalTaskQueue)

	result, err := l.ExecuteLaunch(c.Context, temporal.LaunchTokenInput{
		Decimals:      params.Decimals,
		InitialSupply: params.InitialSupply,
		Space:         params.Space,
		Metadata:      data,
	})
	if err != nil {
		if result != nil && result.Create != nil {
			fmt.Fprintf(c.App.ErrWriter, "Mint %s was created but metadata was not attached\n", result.Create.Mint)
		}
		return exitError(err)
	}

	outcome := &issuer.LaunchOutcome{Create: result.Create, Metadata: result.Metadata}
	if !jsonOutput(c) {
		fmt.Fprintf(c.App.Writer, "✓ Launched mint %s\n", outcome.Create.Mint)
		fmt.Fprintf(c.App.Writer, "  Create signature:   %s\n", outcome.Create.Signature)
		fmt.Fprintf(c.App.Writer, "  Metadata signature: %s\n", outcome.Metadata.Signature)
		return nil
	}
	return printResult(c, outcome)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the operation named by the OPERATION environment variable",
		Description: `Reads every setting from the environment (NETWORK_URL, KEYPAIR_PATH, OPERATION,
AMOUNT, MINT_ADDRESS, DESTINATION_ADDRESS, METADATA_FILE, ...) and runs the
configured operation: mint, create, metadata or launch.`,
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return exitError(err)
			}
			if cfg.Operation == "" {
				return exitError(solanasvc.ConfigError("OPERATION is required"))
			}
			op, err := config.NormalizeOperation(cfg.Operation)
			if err != nil {
				return exitError(solanasvc.ConfigError("%w", err))
			}

			rt, err := newRuntime(c, cfg, true)
			if err != nil {
				return exitError(err)
			}
			defer rt.Close(c.Context)

			var result any
			switch op {
			case config.OperationMint:
				params, perr := mintParams(cfg.Amount, cfg.MintAddress, cfg.DestinationAddress, "")
				if perr != nil {
					return exitError(perr)
				}
				result, err = rt.orch.MintToken(c.Context, params)
			case config.OperationCreate:
				result, err = rt.orch.CreateToken(c.Context, configCreateParams(cfg))
			case config.OperationMetadata:
				mint, perr := solanasvc.ParsePublicKey("MINT_ADDRESS", cfg.MintAddress)
				if perr != nil {
					return exitError(perr)
				}
				data, perr := configMetadata(cfg)
				if perr != nil {
					return exitError(perr)
				}
				result, err = rt.orch.UpdateMetadata(c.Context, mint, data)
			case config.OperationLaunch:
				data, perr := configMetadata(cfg)
				if perr != nil {
					return exitError(perr)
				}
				result, err = rt.orch.Launch(c.Context, configCreateParams(cfg), data)
			}
			if err != nil {
				return exitError(err)
			}
			return printResult(c, result)
		},
	}
}

func configCreateParams(cfg *config.Config) issuer.CreateParams {
	return issuer.CreateParams{
		Space:         cfg.MintSpace,
		Decimals:      cfg.Decimals,
		InitialSupply: cfg.InitialSupply,
	}
}

func configMetadata(cfg *config.Config) (metadata.Data, error) {
	if cfg.MetadataFile == "" {
		return metadata.Default(), nil
	}
	return metadata.LoadFile(cfg.MetadataFile)
}

func addressCommands() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "Derive program addresses without touching the network",
		Subcommands: []*cli.Command{
			{
				Name:  "ata",
				Usage: "Associated token account of an owner for a mint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Wallet address", Required: true},
					&cli.StringFlag{Name: "mint", Aliases: []string{"m"}, Usage: "Mint address", Required: true},
				},
				Action: func(c *cli.Context) error {
					owner, err := solanasvc.ParsePublicKey("owner", c.String("owner"))
					if err != nil {
						return exitError(err)
					}
					mint, err := solanasvc.ParsePublicKey("mint", c.String("mint"))
					if err != nil {
						return exitError(err)
					}
					ata, err := solanasvc.AssociatedTokenAddress(owner, mint)
					if err != nil {
						return exitError(err)
					}
					if jsonOutput(c) {
						return printResult(c, map[string]string{
							"owner":                    owner.String(),
							"mint":                     mint.String(),
							"associated_token_account": ata.String(),
						})
					}
					fmt.Fprintln(c.App.Writer, ata.String())
					return nil
				},
			},
			{
				Name:  "metadata",
				Usage: "Metadata account of a mint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mint", Aliases: []string{"m"}, Usage: "Mint address", Required: true},
				},
				Action: func(c *cli.Context) error {
					mint, err := solanasvc.ParsePublicKey("mint", c.String("mint"))
					if err != nil {
						return exitError(err)
					}
					addr, err := metadata.FindAddress(mint)
					if err != nil {
						return exitError(err)
					}
					if jsonOutput(c) {
						return printResult(c, map[string]string{
							"mint":     mint.String(),
							"metadata": addr.String(),
						})
					}
					fmt.Fprintln(c.App.Writer, addr.String())
					return nil
				},
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			if jsonOutput(c) {
				return printResult(c, map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			fmt.Fprintf(c.App.Writer, "mintctl %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
