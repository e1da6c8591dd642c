// Package issuer assembles, submits and reports the token operations:
// minting to a token account, creating a mint, and attaching metadata.
package issuer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/brojonat/mintctl/service/nats"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// Operation names.
const (
	OperationMint     = "mint_token"
	OperationCreate   = "create_token"
	OperationMetadata = "update_metadata"
)

// Chain is the subset of the Solana client the orchestrator needs.
type Chain interface {
	MinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error)
	GetMint(ctx context.Context, address solana.PublicKey) (*token.Mint, error)
	GetTokenAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error)
	GetTokenBalance(ctx context.Context, address solana.PublicKey) (*solanasvc.TokenBalance, error)
	Submit(ctx context.Context, p solanasvc.SubmitParams) (*solanasvc.Receipt, error)
	Commitment() rpc.CommitmentType
}

// Config holds the orchestrator's dependencies.
type Config struct {
	Chain  Chain
	Signer solana.PrivateKey

	// Publisher receives an event per operation outcome. Optional.
	Publisher nats.Publisher
	// Network labels published events (e.g. "devnet").
	Network string
	// Out receives human-readable status lines. Nil discards them.
	Out    io.Writer
	Logger *slog.Logger
}

// Orchestrator runs token operations on behalf of a single signer, who is
// fee payer and authority for everything it submits.
type Orchestrator struct {
	chain     Chain
	signer    solana.PrivateKey
	publisher nats.Publisher
	network   string
	out       io.Writer
	logger    *slog.Logger
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		chain:     cfg.Chain,
		signer:    cfg.Signer,
		publisher: cfg.Publisher,
		network:   cfg.Network,
		out:       out,
		logger:    logger.With("component", "issuer", "signer", cfg.Signer.PublicKey().String()),
	}
}

// Signer returns the public key of the signer.
func (o *Orchestrator) Signer() solana.PublicKey {
	return o.signer.PublicKey()
}

// Outcome describes a confirmed operation.
type Outcome struct {
	Operation              string `json:"operation"`
	Signer                 string `json:"signer"`
	Mint                   string `json:"mint"`
	Destination            string `json:"destination,omitempty"`
	AssociatedTokenAccount string `json:"associated_token_account,omitempty"`
	Metadata               string `json:"metadata,omitempty"`
	Amount                 uint64 `json:"amount,omitempty"`
	Decimals               *uint8 `json:"decimals,omitempty"`
	RentLamports           uint64 `json:"rent_lamports,omitempty"`
	Blockhash              string `json:"blockhash"`
	LastValidBlockHeight   uint64 `json:"last_valid_block_height"`
	Signature              string `json:"signature"`
	Slot                   uint64 `json:"slot"`
	ConfirmationStatus     string `json:"confirmation_status"`
}

func (o *Orchestrator) newOutcome(operation string, mint solana.PublicKey, r *solanasvc.Receipt) *Outcome {
	return &Outcome{
		Operation:            operation,
		Signer:               o.Signer().String(),
		Mint:                 mint.String(),
		Blockhash:            r.Blockhash.String(),
		LastValidBlockHeight: r.LastValidBlockHeight,
		Signature:            r.Signature.String(),
		Slot:                 r.Slot,
		ConfirmationStatus:   string(r.ConfirmationStatus),
	}
}

func (o *Orchestrator) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

func (o *Orchestrator) printReceipt(r *solanasvc.Receipt) {
	o.printf("  Blockhash:   %s\n", r.Blockhash)
	o.printf("  Signature:   %s\n", r.Signature)
	o.printf("  Slot:        %d (%s)\n", r.Slot, r.ConfirmationStatus)
}

// Balance returns the balance of a token account.
func (o *Orchestrator) Balance(ctx context.Context, account solana.PublicKey) (*solanasvc.TokenBalance, error) {
	balance, err := o.chain.GetTokenBalance(ctx, account)
	if err != nil {
		return nil, solanasvc.Annotate(err, "balance", account.String())
	}
	return balance, nil
}
