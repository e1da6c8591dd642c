package issuer

import (
	"context"
	"errors"
	"fmt"

	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/gagliardetto/solana-go"
	atok "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
)

// MintParams describes a mint_token operation.
type MintParams struct {
	Amount uint64
	Mint   solana.PublicKey

	// Destination is the token account to credit. When Owner is set instead,
	// the destination is the owner's associated token account for Mint.
	Destination solana.PublicKey
	Owner       *solana.PublicKey

	// CreateDestination prepends a create instruction when the owner's
	// associated token account does not exist yet. Requires Owner.
	CreateDestination bool

	// SkipDestinationCheck submits without first reading the destination.
	SkipDestinationCheck bool
}

// MintToken mints Amount base units of Mint into the destination token
// account in one transaction signed by the signer as mint authority and fee
// payer. It blocks until the transaction is confirmed or rejected.
func (o *Orchestrator) MintToken(ctx context.Context, p MintParams) (*Outcome, error) {
	dest, err := o.mintDestination(p)
	if err != nil {
		return nil, solanasvc.Annotate(err, OperationMint, p.Mint.String())
	}

	outcome, err := o.mintToken(ctx, p, dest)
	o.publish(ctx, OperationMint, p.Mint.String(), dest.String(), p.Amount, outcome, err)
	if err != nil {
		o.logger.ErrorContext(ctx, "mint failed", "mint", p.Mint.String(), "destination", dest.String(), "error", err)
		return nil, solanasvc.Annotate(err, OperationMint, p.Mint.String())
	}
	return outcome, nil
}

func (o *Orchestrator) mintDestination(p MintParams) (solana.PublicKey, error) {
	if p.Amount == 0 {
		return solana.PublicKey{}, solanasvc.ConfigError("amount must be greater than zero")
	}
	if p.Mint.IsZero() {
		return solana.PublicKey{}, solanasvc.ConfigError("mint address is required")
	}
	if p.Owner != nil {
		if !p.Destination.IsZero() {
			return solana.PublicKey{}, solanasvc.ConfigError("destination and owner are mutually exclusive")
		}
		return solanasvc.AssociatedTokenAddress(*p.Owner, p.Mint)
	}
	if p.CreateDestination {
		return solana.PublicKey{}, solanasvc.ConfigError("creating the destination requires an owner")
	}
	if p.Destination.IsZero() {
		return solana.PublicKey{}, solanasvc.ConfigError("destination address is required")
	}
	return p.Destination, nil
}

func (o *Orchestrator) mintToken(ctx context.Context, p MintParams, dest solana.PublicKey) (*Outcome, error) {
	payer := o.Signer()
	var instructions []solana.Instruction

	if p.Owner != nil {
		o.printf("Associated token account: %s\n", dest)
	}

	if !p.SkipDestinationCheck || p.CreateDestination {
		account, err := o.chain.GetTokenAccount(ctx, dest)
		switch {
		case errors.Is(err, solanasvc.ErrAccountNotFound) && p.CreateDestination:
			ix, err := atok.NewCreateInstruction(payer, *p.Owner, p.Mint).ValidateAndBuild()
			if err != nil {
				return nil, solanasvc.ProtocolError("", dest.String(), fmt.Errorf("failed to build create account instruction: %w", err))
			}
			instructions = append(instructions, ix)
			o.printf("Destination does not exist; it will be created\n")
		case errors.Is(err, solanasvc.ErrAccountNotFound):
			return nil, solanasvc.ProtocolError("", dest.String(),
				fmt.Errorf("destination token account %s does not exist", dest))
		case err != nil:
			return nil, err
		case !account.Mint.Equals(p.Mint):
			return nil, solanasvc.ProtocolError("", dest.String(),
				fmt.Errorf("destination token account holds mint %s, not %s", account.Mint, p.Mint))
		}
	}

	ix, err := token.NewMintToInstruction(p.Amount, p.Mint, dest, payer, nil).ValidateAndBuild()
	if err != nil {
		return nil, solanasvc.ProtocolError("", "", fmt.Errorf("failed to build mint instruction: %w", err))
	}
	instructions = append(instructions, ix)

	o.printf("Minting %d base units of %s to %s\n", p.Amount, p.Mint, dest)

	receipt, err := o.chain.Submit(ctx, solanasvc.SubmitParams{
		Operation:    OperationMint,
		Address:      p.Mint.String(),
		FeePayer:     payer,
		Instructions: instructions,
		Signers:      []solana.PrivateKey{o.signer},
	})
	if err != nil {
		return nil, err
	}

	outcome := o.newOutcome(OperationMint, p.Mint, receipt)
	outcome.Destination = dest.String()
	outcome.Amount = p.Amount

	o.printf("✓ Minted %d base units\n", p.Amount)
	o.printReceipt(receipt)

	o.logger.InfoContext(ctx, "minted tokens",
		"mint", p.Mint.String(),
		"destination", dest.String(),
		"amount", p.Amount,
		"signature", receipt.Signature.String(),
	)
	return outcome, nil
}
