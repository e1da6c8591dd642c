package temporal

import (
	"time"

	"github.com/brojonat/mintctl/service/issuer"
	"github.com/brojonat/mintctl/service/metadata"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// LaunchTokenInput contains the parameters for LaunchTokenWorkflow.
type LaunchTokenInput struct {
	Decimals      uint8         `json:"decimals"`
	InitialSupply uint64        `json:"initial_supply"`
	Space         uint64        `json:"space"`
	Metadata      metadata.Data `json:"metadata"`
}

// LaunchTokenResult contains the outcome of each transaction of a launch.
type LaunchTokenResult struct {
	Create   *issuer.Outcome `json:"create"`
	Metadata *issuer.Outcome `json:"metadata,omitempty"`
}

// LaunchTokenWorkflow creates a mint and then attaches metadata to it.
//
// The two steps are separate transactions submitted by separate activities,
// each fetching its own blockhash. Activities are never retried: a
// transaction that may have landed must not be resent. If metadata fails,
// the error details still carry the outcome of the created mint.
func LaunchTokenWorkflow(ctx workflow.Context, input LaunchTokenInput) (*LaunchTokenResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("launch workflow started",
		"name", input.Metadata.Name,
		"symbol", input.Metadata.Symbol,
	)

	if err := input.Metadata.Validate(); err != nil {
		return nil, applicationError(err, nil)
	}

	ao := workflow.ActivityOptions{
		// covers blockhash expiry (~150 blocks) plus status polling
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var created CreateTokenResult
	err := workflow.ExecuteActivity(ctx, a.CreateToken, CreateTokenInput{
		Decimals:      input.Decimals,
		InitialSupply: input.InitialSupply,
		Space:         input.Space,
	}).Get(ctx, &created)
	if err != nil {
		logger.Error("create token activity failed", "error", err)
		return nil, err
	}

	var attached UpdateMetadataResult
	err = workflow.ExecuteActivity(ctx, a.UpdateMetadata, UpdateMetadataInput{
		Mint:     created.Outcome.Mint,
		Metadata: input.Metadata,
	}).Get(ctx, &attached)
	if err != nil {
		logger.Error("update metadata activity failed", "mint", created.Outcome.Mint, "error", err)
		return nil, launchError(err, created.Outcome)
	}

	logger.Info("launch workflow completed", "mint", created.Outcome.Mint)
	return &LaunchTokenResult{Create: created.Outcome, Metadata: attached.Outcome}, nil
}
