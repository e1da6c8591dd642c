package temporal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/brojonat/mintctl/service/issuer"
	"github.com/brojonat/mintctl/service/metadata"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/gagliardetto/solana-go"
	"go.temporal.io/sdk/temporal"
)

// CreateTokenInput contains parameters for the CreateToken activity.
type CreateTokenInput struct {
	Decimals      uint8  `json:"decimals"`
	InitialSupply uint64 `json:"initial_supply"`
	Space         uint64 `json:"space"`
}

// CreateTokenResult contains the result of the CreateToken activity.
type CreateTokenResult struct {
	Outcome *issuer.Outcome `json:"outcome"`
}

// UpdateMetadataInput contains parameters for the UpdateMetadata activity.
type UpdateMetadataInput struct {
	Mint     string        `json:"mint"`
	Metadata metadata.Data `json:"metadata"`
}

// UpdateMetadataResult contains the result of the UpdateMetadata activity.
type UpdateMetadataResult struct {
	Outcome *issuer.Outcome `json:"outcome"`
}

// IssuerInterface defines the token operations needed by activities.
// This allows for easy mocking in tests.
type IssuerInterface interface {
	CreateToken(ctx context.Context, p issuer.CreateParams) (*issuer.Outcome, error)
	UpdateMetadata(ctx context.Context, mint solana.PublicKey, data metadata.Data) (*issuer.Outcome, error)
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	issuer IssuerInterface
	logger *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
func NewActivities(iss IssuerInterface, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		issuer: iss,
		logger: logger,
	}
}

// CreateToken creates a new mint. The mint keypair is generated inside the
// activity and never leaves the worker; only its public key is returned.
func (a *Activities) CreateToken(ctx context.Context, input CreateTokenInput) (*CreateTokenResult, error) {
	a.logger.DebugContext(ctx, "creating token",
		"decimals", input.Decimals,
		"initial_supply", input.InitialSupply,
		"space", input.Space,
	)

	outcome, err := a.issuer.CreateToken(ctx, issuer.CreateParams{
		Space:         input.Space,
		Decimals:      input.Decimals,
		InitialSupply: input.InitialSupply,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "create token activity failed", "error", err)
		return nil, applicationError(err, nil)
	}

	a.logger.InfoContext(ctx, "create token activity completed",
		"mint", outcome.Mint,
		"signature", outcome.Signature,
	)
	return &CreateTokenResult{Outcome: outcome}, nil
}

// UpdateMetadata attaches metadata to the mint created earlier in the workflow.
func (a *Activities) UpdateMetadata(ctx context.Context, input UpdateMetadataInput) (*UpdateMetadataResult, error) {
	mint, err := solanasvc.ParsePublicKey("mint", input.Mint)
	if err != nil {
		return nil, applicationError(err, nil)
	}

	outcome, err := a.issuer.UpdateMetadata(ctx, mint, input.Metadata)
	if err != nil {
		a.logger.ErrorContext(ctx, "update metadata activity failed", "mint", input.Mint, "error", err)
		return nil, applicationError(err, nil)
	}

	a.logger.InfoContext(ctx, "update metadata activity completed",
		"mint", input.Mint,
		"metadata", outcome.Metadata,
		"signature", outcome.Signature,
	)
	return &UpdateMetadataResult{Outcome: outcome}, nil
}

// applicationError converts an operation error into a non-retryable
// application error whose type is the error kind. Its details carry the
// rejection reason and, once a launch is past its first step, the outcome of
// the mint it created. A submitted transaction is never resent.
func applicationError(err error, created *issuer.Outcome) error {
	return temporal.NewNonRetryableApplicationError(
		err.Error(),
		solanasvc.KindOf(err),
		err,
		solanasvc.ReasonOf(err),
		created,
	)
}

// launchError re-raises an activity failure from the workflow, attaching
// the outcome of the mint created so far.
func launchError(err error, created *issuer.Outcome) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "network", err, "", created)
	}
	reason, _ := decodeDetails(appErr)
	return temporal.NewNonRetryableApplicationError(appErr.Error(), appErr.Type(), err, reason, created)
}

func decodeDetails(appErr *temporal.ApplicationError) (string, *issuer.Outcome) {
	var (
		reason  string
		created *issuer.Outcome
	)
	if appErr.HasDetails() {
		_ = appErr.Details(&reason, &created)
	}
	return reason, created
}

// operationError rebuilds an operation error from a failed workflow, so
// callers can classify it with errors.Is. It also returns the outcome of
// the mint created before the failure, if any.
func operationError(operation string, err error) (*issuer.Outcome, error) {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return nil, solanasvc.NetworkError(operation, "", err)
	}
	reason, created := decodeDetails(appErr)
	return created, &solanasvc.OperationError{
		Kind:      solanasvc.KindFromLabel(appErr.Type()),
		Operation: operation,
		Reason:    reason,
		Err:       errors.New(appErr.Error()),
	}
}
