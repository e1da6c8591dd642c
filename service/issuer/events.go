package issuer

import (
	"context"
	"errors"
	"time"

	"github.com/brojonat/mintctl/service/nats"
	solanasvc "github.com/brojonat/mintctl/service/solana"
)

// publish reports an operation outcome. Publishing is best effort: a
// failure is logged and never changes the operation's result.
func (o *Orchestrator) publish(ctx context.Context, operation, mint, address string, amount uint64, outcome *Outcome, opErr error) {
	if o.publisher == nil || errors.Is(opErr, solanasvc.ErrConfig) {
		return
	}

	event := &nats.OperationEvent{
		Operation:   operation,
		Mint:        mint,
		Address:     address,
		Signer:      o.Signer().String(),
		Amount:      amount,
		Network:     o.network,
		PublishedAt: time.Now().UTC(),
	}
	switch {
	case opErr == nil:
		event.Status = "confirmed"
		event.Signature = outcome.Signature
		event.Slot = outcome.Slot
		event.Blockhash = outcome.Blockhash
	case errors.Is(opErr, solanasvc.ErrRejectedTransaction):
		event.Status = "rejected"
		event.Reason = solanasvc.ReasonOf(opErr)
		event.Error = opErr.Error()
	default:
		event.Status = "failed"
		event.Reason = solanasvc.KindOf(opErr)
		event.Error = opErr.Error()
	}

	if err := o.publisher.PublishOperation(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to publish operation event",
			"operation", operation,
			"error", err,
		)
	}
}
