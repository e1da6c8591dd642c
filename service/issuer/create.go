package issuer

import (
	"context"
	"fmt"

	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/gagliardetto/solana-go"
	atok "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

const (
	// MintAccountSize is the size of an SPL token mint account.
	MintAccountSize = 82
	MaxDecimals     = 9

	DefaultDecimals      = 6
	DefaultInitialSupply = 100000000
)

// CreateParams describes a create_token operation.
type CreateParams struct {
	// MintKey is the keypair of the new mint. A fresh one is generated when nil.
	MintKey solana.PrivateKey
	// Space is the size of the mint account; zero means MintAccountSize.
	Space    uint64
	Decimals uint8
	// InitialSupply is minted to the signer's associated token account;
	// zero means DefaultInitialSupply.
	InitialSupply uint64
}

// DefaultCreateParams returns the parameters of a standard mint.
func DefaultCreateParams() CreateParams {
	return CreateParams{
		Space:         MintAccountSize,
		Decimals:      DefaultDecimals,
		InitialSupply: DefaultInitialSupply,
	}
}

// CreateToken creates a new mint in one transaction: create the mint
// account, initialize it with the signer as mint and freeze authority,
// create the signer's associated token account, and mint the initial supply
// into it. The signer and the new mint keypair both sign.
func (o *Orchestrator) CreateToken(ctx context.Context, p CreateParams) (*Outcome, error) {
	if p.Space == 0 {
		p.Space = MintAccountSize
	}
	if p.InitialSupply == 0 {
		p.InitialSupply = DefaultInitialSupply
	}
	if p.Space != MintAccountSize {
		// InitializeMint rejects any other account length
		return nil, solanasvc.Annotate(solanasvc.ConfigError("account space %d must equal the %d byte mint layout", p.Space, MintAccountSize), OperationCreate, "")
	}
	if p.Decimals > MaxDecimals {
		return nil, solanasvc.Annotate(solanasvc.ConfigError("decimals %d exceeds %d", p.Decimals, MaxDecimals), OperationCreate, "")
	}
	if p.MintKey == nil {
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, solanasvc.Annotate(solanasvc.ConfigError("failed to generate mint keypair: %w", err), OperationCreate, "")
		}
		p.MintKey = key
	}
	mint := p.MintKey.PublicKey()

	outcome, err := o.createToken(ctx, p, mint)
	address := ""
	if outcome != nil {
		address = outcome.AssociatedTokenAccount
	}
	o.publish(ctx, OperationCreate, mint.String(), address, p.InitialSupply, outcome, err)
	if err != nil {
		o.logger.ErrorContext(ctx, "create failed", "mint", mint.String(), "error", err)
		return nil, solanasvc.Annotate(err, OperationCreate, mint.String())
	}
	return outcome, nil
}

func (o *Orchestrator) createToken(ctx context.Context, p CreateParams, mint solana.PublicKey) (*Outcome, error) {
	payer := o.Signer()

	rent, err := o.chain.MinimumBalanceForRentExemption(ctx, p.Space)
	if err != nil {
		return nil, err
	}
	o.printf("Rent-exempt minimum for %d bytes: %d lamports\n", p.Space, rent)

	ata, err := solanasvc.AssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, err
	}
	o.printf("Mint:                     %s\n", mint)
	o.printf("Associated token account: %s\n", ata)

	instructions, err := buildCreateInstructions(payer, mint, ata, rent, p)
	if err != nil {
		return nil, solanasvc.ProtocolError("", "", err)
	}

	receipt, err := o.chain.Submit(ctx, solanasvc.SubmitParams{
		Operation:    OperationCreate,
		Address:      mint.String(),
		FeePayer:     payer,
		Instructions: instructions,
		Signers:      []solana.PrivateKey{o.signer, p.MintKey},
	})
	if err != nil {
		return nil, err
	}

	decimals := p.Decimals
	outcome := o.newOutcome(OperationCreate, mint, receipt)
	outcome.AssociatedTokenAccount = ata.String()
	outcome.Amount = p.InitialSupply
	outcome.Decimals = &decimals
	outcome.RentLamports = rent

	o.printf("✓ Created mint %s with %d decimals and supply %d\n", mint, p.Decimals, p.InitialSupply)
	o.printReceipt(receipt)

	o.logger.InfoContext(ctx, "created token",
		"mint", mint.String(),
		"ata", ata.String(),
		"decimals", p.Decimals,
		"supply", p.InitialSupply,
		"signature", receipt.Signature.String(),
	)
	return outcome, nil
}

func buildCreateInstructions(payer, mint, ata solana.PublicKey, rent uint64, p CreateParams) ([]solana.Instruction, error) {
	createAccount, err := system.NewCreateAccountInstruction(
		rent,
		p.Space,
		solana.TokenProgramID,
		payer,
		mint,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build create account instruction: %w", err)
	}

	initializeMint, err := token.NewInitializeMintInstruction(
		p.Decimals,
		payer,
		payer,
		mint,
		solana.SysVarRentPubkey,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize mint instruction: %w", err)
	}

	createATA, err := atok.NewCreateInstruction(payer, payer, mint).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build associated token account instruction: %w", err)
	}

	mintTo, err := token.NewMintToInstruction(p.InitialSupply, mint, ata, payer, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build mint instruction: %w", err)
	}

	return []solana.Instruction{createAccount, initializeMint, createATA, mintTo}, nil
}
