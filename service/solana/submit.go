package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Submit runs one transaction through the pipeline
// Built -> Signed -> Submitted -> Confirmed | Rejected.
//
// A fresh blockhash is fetched immediately before signing. Submit blocks until
// the transaction reaches the client's commitment, is rejected, or its
// blockhash expires. Nothing is retried: a returned error means either the
// transaction did not apply (rejected) or its outcome is unknown (network).
func (c *Client) Submit(ctx context.Context, p SubmitParams) (*Receipt, error) {
	receipt, err := c.submit(ctx, p)
	if err != nil {
		err = Annotate(err, p.Operation, p.Address)
		if c.metrics != nil {
			status := "error"
			if errors.Is(err, ErrRejectedTransaction) {
				status = "rejected"
			}
			c.metrics.RecordTransaction(p.Operation, status, ReasonOf(err))
		}
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordTransaction(p.Operation, string(StageConfirmed), "")
	}
	return receipt, nil
}

func (c *Client) submit(ctx context.Context, p SubmitParams) (*Receipt, error) {
	if len(p.Instructions) == 0 {
		return nil, ProtocolError("", "", errors.New("no instructions to submit"))
	}
	programs := make([]solana.PublicKey, len(p.Instructions))
	for i, ix := range p.Instructions {
		programs[i] = ix.ProgramID()
	}

	blockhash, err := c.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(p.Instructions, blockhash.Hash, solana.TransactionPayer(p.FeePayer))
	if err != nil {
		return nil, ProtocolError("", "", fmt.Errorf("failed to build transaction: %w", err))
	}
	c.logStage(ctx, p, StageBuilt, "blockhash", blockhash.Hash.String(), "instructions", len(p.Instructions))

	keys := make(map[solana.PublicKey]*solana.PrivateKey, len(p.Signers))
	for i := range p.Signers {
		keys[p.Signers[i].PublicKey()] = &p.Signers[i]
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return keys[key]
	}); err != nil {
		return nil, ProtocolError("", "", fmt.Errorf("failed to sign transaction: %w", err))
	}
	c.logStage(ctx, p, StageSigned, "signature", tx.Signatures[0].String())

	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	c.recordRPC("SendTransaction", start, err)
	if err != nil {
		classified := classifySendError(err, programs)
		c.logger.WarnContext(ctx, "transaction refused",
			"operation", p.Operation,
			"error", classified,
		)
		return nil, classified
	}
	c.logStage(ctx, p, StageSubmitted, "signature", sig.String())

	receipt, err := c.awaitConfirmation(ctx, p.Operation, sig, blockhash, programs)
	status := string(StageConfirmed)
	if err != nil {
		status = string(StageRejected)
		if !errors.Is(err, ErrRejectedTransaction) {
			status = "unknown"
		}
	}
	if c.metrics != nil {
		c.metrics.RecordConfirmDuration(p.Operation, status, time.Since(start).Seconds())
	}
	if err != nil {
		c.logStage(ctx, p, Stage(status), "signature", sig.String(), "error", err)
		return nil, err
	}
	c.logStage(ctx, p, StageConfirmed, "signature", sig.String(), "slot", receipt.Slot)
	return receipt, nil
}

func (c *Client) logStage(ctx context.Context, p SubmitParams, stage Stage, args ...any) {
	c.logger.DebugContext(ctx, "transaction stage",
		append([]any{"operation", p.Operation, "address", p.Address, "stage", string(stage)}, args...)...,
	)
}

// awaitConfirmation polls the signature status until the transaction reaches
// the client's commitment. While the transaction has not been seen, the
// current block height is compared with the blockhash's last valid height:
// once it is exceeded the transaction can never land.
func (c *Client) awaitConfirmation(
	ctx context.Context,
	operation string,
	sig solana.Signature,
	blockhash *Blockhash,
	programs []solana.PublicKey,
) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		if c.metrics != nil {
			c.metrics.RecordStatusPoll(operation)
		}
		status, err := c.signatureStatus(ctx, sig)
		if err == nil && status != nil {
			failures = 0
			if status.Err != nil {
				return nil, classifyStatusError(status.Err, programs)
			}
			if commitmentReached(status.ConfirmationStatus, c.commitment) {
				return &Receipt{
					Signature:            sig,
					Blockhash:            blockhash.Hash,
					LastValidBlockHeight: blockhash.LastValidBlockHeight,
					Slot:                 status.Slot,
					ConfirmationStatus:   status.ConfirmationStatus,
					Stage:                StageConfirmed,
				}, nil
			}
		}

		if err == nil && status == nil {
			var height uint64
			height, err = c.blockHeight(ctx)
			if err == nil {
				failures = 0
				if height > blockhash.LastValidBlockHeight {
					return nil, RejectedError("", "", ReasonBlockhashExpired,
						fmt.Errorf("signature %s not found and block height %d exceeds last valid block height %d",
							sig, height, blockhash.LastValidBlockHeight))
				}
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, NetworkError("", "", fmt.Errorf("stopped waiting for %s: %w", sig, ctx.Err()))
			}
			failures++
			c.logger.WarnContext(ctx, "failed to poll transaction status",
				"signature", sig.String(),
				"attempt", failures,
				"error", err,
			)
			if failures >= c.maxPollFailures {
				return nil, NetworkError("", "",
					fmt.Errorf("outcome of %s unknown after %d failed status polls: %w", sig, failures, err))
			}
		}

		select {
		case <-ctx.Done():
			return nil, NetworkError("", "", fmt.Errorf("stopped waiting for %s: %w", sig, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (c *Client) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	start := time.Now()
	out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	c.recordRPC("GetSignatureStatuses", start, err)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

func (c *Client) blockHeight(ctx context.Context) (uint64, error) {
	start := time.Now()
	height, err := c.rpc.GetBlockHeight(ctx, c.commitment)
	c.recordRPC("GetBlockHeight", start, err)
	return height, err
}

func commitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentConfirmed:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	default:
		return status != ""
	}
}
