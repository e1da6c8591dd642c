package issuer

import (
	"context"
	"errors"
	"fmt"

	"github.com/brojonat/mintctl/service/metadata"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/gagliardetto/solana-go"
)

// UpdateMetadata attaches a metadata account to an existing mint. The mint
// must already be visible at the client's commitment; otherwise nothing is
// submitted. The signer is mint authority, payer and update authority.
func (o *Orchestrator) UpdateMetadata(ctx context.Context, mint solana.PublicKey, data metadata.Data) (*Outcome, error) {
	if mint.IsZero() {
		return nil, solanasvc.Annotate(solanasvc.ConfigError("mint address is required"), OperationMetadata, "")
	}
	if err := data.Validate(); err != nil {
		return nil, solanasvc.Annotate(err, OperationMetadata, mint.String())
	}

	outcome, metadataAddr, err := o.updateMetadata(ctx, mint, data)
	o.publish(ctx, OperationMetadata, mint.String(), metadataAddr, 0, outcome, err)
	if err != nil {
		o.logger.ErrorContext(ctx, "metadata update failed", "mint", mint.String(), "error", err)
		return nil, solanasvc.Annotate(err, OperationMetadata, mint.String())
	}
	return outcome, nil
}

func (o *Orchestrator) updateMetadata(ctx context.Context, mint solana.PublicKey, data metadata.Data) (*Outcome, string, error) {
	payer := o.Signer()

	if _, err := o.chain.GetMint(ctx, mint); err != nil {
		if errors.Is(err, solanasvc.ErrAccountNotFound) {
			return nil, "", solanasvc.ProtocolError(OperationMetadata, mint.String(),
				fmt.Errorf("mint not found at %s commitment; it must be confirmed before metadata can be attached", o.chain.Commitment()))
		}
		return nil, "", err
	}

	ix, metadataAddr, err := metadata.NewCreateInstruction(metadata.CreateParams{
		Mint:            mint,
		MintAuthority:   payer,
		Payer:           payer,
		UpdateAuthority: payer,
		Data:            data,
	})
	if err != nil {
		return nil, "", err
	}
	o.printf("Metadata account: %s\n", metadataAddr)

	receipt, err := o.chain.Submit(ctx, solanasvc.SubmitParams{
		Operation:    OperationMetadata,
		Address:      mint.String(),
		FeePayer:     payer,
		Instructions: []solana.Instruction{ix},
		Signers:      []solana.PrivateKey{o.signer},
	})
	if err != nil {
		return nil, metadataAddr.String(), err
	}

	outcome := o.newOutcome(OperationMetadata, mint, receipt)
	outcome.Metadata = metadataAddr.String()

	o.printf("✓ Attached metadata %q (%s) to %s\n", data.Name, data.Symbol, mint)
	o.printReceipt(receipt)

	o.logger.InfoContext(ctx, "attached metadata",
		"mint", mint.String(),
		"metadata", metadataAddr.String(),
		"signature", receipt.Signature.String(),
	)
	return outcome, metadataAddr.String(), nil
}

// LaunchOutcome holds both transactions of a launch.
type LaunchOutcome struct {
	Create   *Outcome `json:"create"`
	Metadata *Outcome `json:"metadata"`
}

// Launch creates a mint and then attaches metadata to it, as two separate
// transactions each with its own blockhash. The metadata payload is
// validated before anything is submitted.
func (o *Orchestrator) Launch(ctx context.Context, p CreateParams, data metadata.Data) (*LaunchOutcome, error) {
	if err := data.Validate(); err != nil {
		return nil, solanasvc.Annotate(err, "launch", "")
	}

	created, err := o.CreateToken(ctx, p)
	if err != nil {
		return nil, err
	}
	mint := solana.MustPublicKeyFromBase58(created.Mint)

	attached, err := o.UpdateMetadata(ctx, mint, data)
	if err != nil {
		return &LaunchOutcome{Create: created}, err
	}
	return &LaunchOutcome{Create: created, Metadata: attached}, nil
}
