package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/mintctl/service/metrics"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound is wrapped by lookups of accounts that do not exist.
var ErrAccountNotFound = errors.New("account not found")

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollFailures = 5
)

// Client wraps the RPC client with the reads and the submission pipeline
// the token operations need.
type Client struct {
	rpc             RPCClient
	logger          *slog.Logger
	metrics         *metrics.Metrics
	endpoint        string // RPC endpoint identifier for metrics (e.g., "devnet", rpc host)
	commitment      rpc.CommitmentType
	pollInterval    time.Duration
	maxPollFailures int
}

// Option configures a Client.
type Option func(*Client)

// WithCommitment sets the commitment used for reads, preflight and confirmation.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(cl *Client) { cl.commitment = c }
}

// WithPollInterval sets how often signature statuses are polled.
func WithPollInterval(d time.Duration) Option {
	return func(cl *Client) { cl.pollInterval = d }
}

// WithMaxPollFailures sets how many consecutive failed status polls are
// tolerated before the outcome is reported as unknown.
func WithMaxPollFailures(n int) Option {
	return func(cl *Client) { cl.maxPollFailures = n }
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		rpc:             rpcClient,
		logger:          logger.With("component", "solana"),
		metrics:         m,
		endpoint:        endpoint,
		commitment:      rpc.CommitmentConfirmed,
		pollInterval:    defaultPollInterval,
		maxPollFailures: defaultMaxPollFailures,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commitment returns the commitment level the client confirms at.
func (c *Client) Commitment() rpc.CommitmentType {
	return c.commitment
}

func (c *Client) recordRPC(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

// LatestBlockhash fetches a fresh blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) (*Blockhash, error) {
	start := time.Now()
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	c.recordRPC("GetLatestBlockhash", start, err)
	if err != nil {
		return nil, NetworkError("", "", fmt.Errorf("failed to get latest blockhash: %w", err))
	}
	if out == nil || out.Value == nil {
		return nil, NetworkError("", "", errors.New("empty latest blockhash response"))
	}
	return &Blockhash{
		Hash:                 out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// MinimumBalanceForRentExemption returns the lamports an account of space
// bytes must hold to be rent exempt.
func (c *Client) MinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error) {
	start := time.Now()
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, space, c.commitment)
	c.recordRPC("GetMinimumBalanceForRentExemption", start, err)
	if err != nil {
		return 0, NetworkError("", "", fmt.Errorf("failed to get rent exemption for %d bytes: %w", space, err))
	}
	if c.metrics != nil {
		c.metrics.RecordRent(space, lamports)
	}
	return lamports, nil
}

func (c *Client) accountData(ctx context.Context, address solana.PublicKey, wantOwner solana.PublicKey) ([]byte, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (out == nil || out.Value == nil)) {
		c.recordRPC("GetAccountInfo", start, nil)
		return nil, ProtocolError("", address.String(), ErrAccountNotFound)
	}
	c.recordRPC("GetAccountInfo", start, err)
	if err != nil {
		return nil, NetworkError("", address.String(), fmt.Errorf("failed to get account info: %w", err))
	}
	if !out.Value.Owner.Equals(wantOwner) {
		return nil, ProtocolError("", address.String(),
			fmt.Errorf("account is owned by %s, expected %s", out.Value.Owner, wantOwner))
	}
	if out.Value.Data == nil {
		return nil, ProtocolError("", address.String(), errors.New("account has no data"))
	}
	return out.Value.Data.GetBinary(), nil
}

// GetMint reads and decodes an SPL token mint account.
func (c *Client) GetMint(ctx context.Context, address solana.PublicKey) (*token.Mint, error) {
	data, err := c.accountData(ctx, address, solana.TokenProgramID)
	if err != nil {
		return nil, err
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, ProtocolError("", address.String(), fmt.Errorf("failed to decode mint account: %w", err))
	}
	if !mint.IsInitialized {
		return nil, ProtocolError("", address.String(), errors.New("mint is not initialized"))
	}
	return &mint, nil
}

// GetTokenAccount reads and decodes an SPL token account.
func (c *Client) GetTokenAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error) {
	data, err := c.accountData(ctx, address, solana.TokenProgramID)
	if err != nil {
		return nil, err
	}
	var account token.Account
	if err := bin.NewBinDecoder(data).Decode(&account); err != nil {
		return nil, ProtocolError("", address.String(), fmt.Errorf("failed to decode token account: %w", err))
	}
	return &account, nil
}

// GetTokenBalance returns the balance of a token account.
func (c *Client) GetTokenBalance(ctx context.Context, address solana.PublicKey) (*TokenBalance, error) {
	start := time.Now()
	out, err := c.rpc.GetTokenAccountBalance(ctx, address, c.commitment)
	c.recordRPC("GetTokenAccountBalance", start, err)
	if err != nil {
		if isInvalidParams(err) {
			return nil, ProtocolError("", address.String(), fmt.Errorf("not a token account: %w", err))
		}
		return nil, NetworkError("", address.String(), fmt.Errorf("failed to get token balance: %w", err))
	}
	if out == nil || out.Value == nil {
		return nil, ProtocolError("", address.String(), ErrAccountNotFound)
	}
	return &TokenBalance{
		Account:        address,
		Amount:         out.Value.Amount,
		Decimals:       out.Value.Decimals,
		UIAmountString: out.Value.UiAmountString,
	}, nil
}
