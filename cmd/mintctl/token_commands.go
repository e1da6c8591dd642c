package main

import (
	"fmt"

	"github.com/brojonat/mintctl/service/config"
	"github.com/brojonat/mintctl/service/issuer"
	"github.com/brojonat/mintctl/service/metadata"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func mintCommand() *cli.Command {
	return &cli.Command{
		Name:    "mint",
		Aliases: []string{"mint_token"},
		Usage:   "Mint tokens into an existing token account",
		Description: `Mints AMOUNT base units of the mint into the destination token account.
The keypair must be the mint authority; it also pays the fee.

Use --owner instead of --destination to mint into a wallet's associated token
account, and --create-ata to create that account in the same transaction.`,
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:    "amount",
				Aliases: []string{"a"},
				Usage:   "Amount in base units",
				EnvVars: []string{"AMOUNT"},
			},
			&cli.StringFlag{
				Name:    "mint",
				Aliases: []string{"m"},
				Usage:   "Mint address",
				EnvVars: []string{"MINT_ADDRESS"},
			},
			&cli.StringFlag{
				Name:    "destination",
				Aliases: []string{"d"},
				Usage:   "Destination token account",
				EnvVars: []string{"DESTINATION_ADDRESS"},
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Wallet whose associated token account receives the tokens",
			},
			&cli.BoolFlag{
				Name:  "create-ata",
				Usage: "Create the owner's associated token account if it does not exist",
			},
			&cli.BoolFlag{
				Name:  "skip-destination-check",
				Usage: "Submit without checking that the destination holds the mint",
			},
		},
		Action: func(c *cli.Context) error {
			params, err := mintParams(c.Uint64("amount"), c.String("mint"), c.String("destination"), c.String("owner"))
			if err != nil {
				return exitError(err)
			}
			params.CreateDestination = c.Bool("create-ata")
			params.SkipDestinationCheck = c.Bool("skip-destination-check")

			rt, err := newRuntime(c, globalConfig(c), true)
			if err != nil {
				return exitError(err)
			}
			defer rt.Close(c.Context)

			outcome, err := rt.orch.MintToken(c.Context, params)
			if err != nil {
				return exitError(err)
			}
			return printResult(c, outcome)
		},
	}
}

func createFlags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{
			Name:    "decimals",
			Usage:   "Decimals of the new mint",
			EnvVars: []string{"DECIMALS"},
			Value:   config.DefaultDecimals,
		},
		&cli.Uint64Flag{
			Name:    "initial-supply",
			Usage:   "Base units minted to the signer's associated token account",
			EnvVars: []string{"INITIAL_SUPPLY"},
			Value:   config.DefaultInitialSupply,
		},
		&cli.Uint64Flag{
			Name:    "space",
			Usage:   "Size of the mint account in bytes (must be the 82 byte mint layout)",
			EnvVars: []string{"MINT_SPACE"},
			Value:   config.MintAccountSpace,
		},
	}
}

func createCommand() *cli.Command {
	flags := append(createFlags(), &cli.StringFlag{
		Name:  "mint-keypair",
		Usage: "Keypair file for the new mint (a fresh one is generated by default)",
	})

	return &cli.Command{
		Name:    "create",
		Aliases: []string{"create_token"},
		Usage:   "Create a new mint and mint the initial supply to the signer",
		Description: `Creates the mint account, initializes it with the signer as mint and freeze
authority, creates the signer's associated token account and mints the initial
supply into it, all in one transaction.`,
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg := globalConfig(c)
			params, err := createParams(c, cfg)
			if err != nil {
				return exitError(err)
			}
			if path := c.String("mint-keypair"); path != "" {
				params.MintKey, err = solanasvc.LoadKeypair(path)
				if err != nil {
					return exitError(err)
				}
			}

			rt, err := newRuntime(c, cfg, true)
			if err != nil {
				return exitError(err)
			}
			defer rt.Close(c.Context)

			outcome, err := rt.orch.CreateToken(c.Context, params)
			if err != nil {
				return exitError(err)
			}
			return printResult(c, outcome)
		},
	}
}

func metadataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "metadata-file",
			Aliases: []string{"f"},
			Usage:   "YAML file with name, symbol, uri, seller_fee_basis_points, creators and is_mutable",
			EnvVars: []string{"METADATA_FILE"},
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Token name (overrides the file)",
		},
		&cli.StringFlag{
			Name:  "symbol",
			Usage: "Token symbol (overrides the file)",
		},
		&cli.StringFlag{
			Name:  "uri",
			Usage: "Off-chain metadata URI (overrides the file)",
		},
		&cli.UintFlag{
			Name:  "seller-fee-bps",
			Usage: "Royalty in basis points (overrides the file)",
		},
		&cli.BoolFlag{
			Name:  "immutable",
			Usage: "Make the metadata immutable",
		},
	}
}

func metadataCommand() *cli.Command {
	flags := append(metadataFlags(), &cli.StringFlag{
		Name:    "mint",
		Aliases: []string{"m"},
		Usage:   "Mint address",
		EnvVars: []string{"MINT_ADDRESS"},
	})

	return &cli.Command{
		Name:    "metadata",
		Aliases: []string{"update_metadata"},
		Usage:   "Attach a metadata account to an existing mint",
		Description: `Creates the metadata account for the mint. The keypair must be the mint
authority; it pays for the account and becomes the update authority. The mint
must already be confirmed.`,
		Flags: flags,
		Action: func(c *cli.Context) error {
			mint, err := optionalKey("mint", c.String("mint"))
			if err != nil {
				return exitError(err)
			}
			data, err := loadMetadata(c, c.String("metadata-file"))
			if err != nil {
				return exitError(err)
			}

			rt, err := newRuntime(c, globalConfig(c), true)
			if err != nil {
				return exitError(err)
			}
			defer rt.Close(c.Context)

			outcome, err := rt.orch.UpdateMetadata(c.Context, mint, data)
			if err != nil {
				return exitError(err)
			}
			return printResult(c, outcome)
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the balance of a token account",
		ArgsUsage: "TOKEN_ACCOUNT",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return exitError(solanasvc.ConfigError("token account address is required"))
			}
			account, err := solanasvc.ParsePublicKey("token account", c.Args().Get(0))
			if err != nil {
				return exitError(err)
			}

			rt, err := newRuntime(c, globalConfig(c), false)
			if err != nil {
				return exitError(err)
			}
			defer rt.Close(c.Context)

			balance, err := rt.orch.Balance(c.Context, account)
			if err != nil {
				return exitError(err)
			}
			if jsonOutput(c) {
				return printResult(c, balance)
			}
			fmt.Fprintf(c.App.Writer, "%s: %s (%s base units, %d decimals)\n",
				balance.Account, balance.UIAmountString, balance.Amount, balance.Decimals)
			return nil
		},
	}
}

// mintParams parses the address flags of a mint. Missing values are left
// zero for the orchestrator to report.
func mintParams(amount uint64, mint, destination, owner string) (issuer.MintParams, error) {
	p := issuer.MintParams{Amount: amount}
	var err error
	if p.Mint, err = optionalKey("mint", mint); err != nil {
		return p, err
	}
	if p.Destination, err = optionalKey("destination", destination); err != nil {
		return p, err
	}
	if owner != "" {
		key, err := solanasvc.ParsePublicKey("owner", owner)
		if err != nil {
			return p, err
		}
		p.Owner = &key
	}
	return p, nil
}

func createParams(c *cli.Context, cfg *config.Config) (issuer.CreateParams, error) {
	decimals := c.Uint("decimals")
	if decimals > config.MaxDecimals {
		return issuer.CreateParams{}, solanasvc.ConfigError("decimals %d exceeds %d", decimals, config.MaxDecimals)
	}
	cfg.Decimals = uint8(decimals)
	cfg.InitialSupply = c.Uint64("initial-supply")
	cfg.MintSpace = c.Uint64("space")

	return issuer.CreateParams{
		Space:         cfg.MintSpace,
		Decimals:      cfg.Decimals,
		InitialSupply: cfg.InitialSupply,
	}, nil
}

// loadMetadata reads the payload from path, or starts from the defaults,
// then applies the flag overrides.
func loadMetadata(c *cli.Context, path string) (metadata.Data, error) {
	data := metadata.Default()
	if path != "" {
		var err error
		if data, err = metadata.LoadFile(path); err != nil {
			return metadata.Data{}, err
		}
	}
	if c.IsSet("name") {
		data.Name = c.String("name")
	}
	if c.IsSet("symbol") {
		data.Symbol = c.String("symbol")
	}
	if c.IsSet("uri") {
		data.URI = c.String("uri")
	}
	if c.IsSet("seller-fee-bps") {
		bps := c.Uint("seller-fee-bps")
		if bps > metadata.MaxSellerFeeBasisPts {
			return metadata.Data{}, solanasvc.ProtocolError(issuer.OperationMetadata, "",
				fmt.Errorf("seller fee %d exceeds %d basis points", bps, metadata.MaxSellerFeeBasisPts))
		}
		data.SellerFeeBasisPoints = uint16(bps)
	}
	if c.Bool("immutable") {
		data.IsMutable = false
	}
	return data, nil
}

func optionalKey(field, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, nil
	}
	return solanasvc.ParsePublicKey(field, value)
}
