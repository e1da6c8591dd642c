package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brojonat/mintctl/service/config"
	"github.com/brojonat/mintctl/service/issuer"
	"github.com/brojonat/mintctl/service/metadata"
	"github.com/brojonat/mintctl/service/metrics"
	natspkg "github.com/brojonat/mintctl/service/nats"
	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/brojonat/mintctl/service/temporal"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type cliEnv struct {
	rpc       *solanasvc.MockRPCClient
	publisher *natspkg.MockPublisher
	signer    solana.PrivateKey
	keypair   string
	dir       string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{
		rpc:       solanasvc.NewMockRPCClient(),
		publisher: natspkg.NewMockPublisher(),
		signer:    solana.NewWallet().PrivateKey,
		dir:       t.TempDir(),
	}
	env.keypair = writeKeypair(t, env.dir, "id.json", env.signer)

	origRPC, origPublisher, origConfirm := newRPCClient, newPublisher, confirmSubmit
	newRPCClient = func(string) solanasvc.RPCClient { return env.rpc }
	newPublisher = func(string, *metrics.Metrics, *slog.Logger) (natspkg.Publisher, error) {
		return env.publisher, nil
	}
	confirmSubmit = func(string) (bool, error) {
		t.Fatal("unexpected confirmation prompt")
		return false, nil
	}
	t.Cleanup(func() {
		newRPCClient, newPublisher, confirmSubmit = origRPC, origPublisher, origConfirm
	})
	return env
}

func writeKeypair(t *testing.T, dir, name string, key solana.PrivateKey) string {
	t.Helper()
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// run executes mintctl against the mock chain with fast polling.
func (e *cliEnv) run(args ...string) (string, string, error) {
	app := newApp()
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr

	full := append([]string{"mintctl",
		"--keypair", e.keypair,
		"--network-url", "https://api.devnet.solana.com",
		"--poll-interval", "1ms",
		"--nats-url", "nats://test:4222",
	}, args...)
	err := app.RunContext(context.Background(), full)
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) setMint(t *testing.T, mint solana.PublicKey) {
	t.Helper()
	authority := e.signer.PublicKey()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(&token.Mint{
		MintAuthority: &authority,
		Decimals:      6,
		IsInitialized: true,
	}))
	e.rpc.SetAccount(mint, solana.TokenProgramID, buf.Bytes())
}

func (e *cliEnv) setTokenAccount(t *testing.T, address, mint solana.PublicKey) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(&token.Account{
		Mint:  mint,
		Owner: solana.NewWallet().PublicKey(),
		State: token.Initialized,
	}))
	e.rpc.SetAccount(address, solana.TokenProgramID, buf.Bytes())
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr), "expected an exit error, got %v", err)
	return exitErr.ExitCode()
}

func TestMintCommand(t *testing.T) {
	env := newCLIEnv(t)
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	env.setTokenAccount(t, dest, mint)

	stdout, stderr, err := env.run("--json", "mint",
		"--amount", "2500",
		"--mint", mint.String(),
		"--destination", dest.String(),
	)
	require.NoError(t, err)

	var outcome issuer.Outcome
	require.NoError(t, json.Unmarshal([]byte(stdout), &outcome))
	assert.Equal(t, issuer.OperationMint, outcome.Operation)
	assert.Equal(t, uint64(2500), outcome.Amount)
	assert.Equal(t, dest.String(), outcome.Destination)
	assert.Equal(t, env.signer.PublicKey().String(), outcome.Signer)
	assert.NotEmpty(t, outcome.Signature)

	// status lines go to stderr in JSON mode
	assert.Contains(t, stderr, "✓ Minted 2500 base units")
	assert.Len(t, env.rpc.SentTransactions(), 1)
	assert.Len(t, env.publisher.GetPublishedEventsForOperation(issuer.OperationMint), 1)
	assert.True(t, env.publisher.IsClosed())
}

func TestMintCommand_HumanOutput(t *testing.T) {
	env := newCLIEnv(t)
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	env.setTokenAccount(t, dest, mint)

	stdout, _, err := env.run("mint", "-a", "1", "-m", mint.String(), "-d", dest.String())
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Minted 1 base units")
	assert.Contains(t, stdout, "Signature:")
}

func TestMintCommand_InvalidJQSubmitsNothing(t *testing.T) {
	env := newCLIEnv(t)
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	env.setTokenAccount(t, dest, mint)

	_, stderr, err := env.run("--jq", ".[[[", "mint", "--amount", "5", "--mint", mint.String(), "--destination", dest.String())
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "failed to parse jq filter")
	assert.NotContains(t, stderr, "Minted")
	assert.Empty(t, env.rpc.SentTransactions())
	assert.Empty(t, env.publisher.GetPublishedEvents())
}

func TestMintCommand_ExitCodes(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()

	tests := []struct {
		name  string
		setup func(*testing.T, *cliEnv)
		args  []string
		code  int
	}{
		{
			name: "missing amount is a config error",
			args: []string{"mint", "--mint", mint.String(), "--destination", dest.String()},
			code: 2,
		},
		{
			name: "invalid address is a config error",
			args: []string{"mint", "--amount", "1", "--mint", "not-a-key", "--destination", dest.String()},
			code: 2,
		},
		{
			name: "unreachable node is a network error",
			setup: func(t *testing.T, env *cliEnv) {
				env.setTokenAccount(t, dest, mint)
				env.rpc.BlockhashErr = errors.New("connection refused")
			},
			args: []string{"mint", "--amount", "1", "--mint", mint.String(), "--destination", dest.String()},
			code: 3,
		},
		{
			name: "refused transaction is a rejection",
			setup: func(t *testing.T, env *cliEnv) {
				env.setTokenAccount(t, dest, mint)
				env.rpc.SendErr = &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}
			},
			args: []string{"mint", "--amount", "1", "--mint", mint.String(), "--destination", dest.String()},
			code: 4,
		},
		{
			name: "missing destination account is a protocol error",
			args: []string{"mint", "--amount", "1", "--mint", mint.String(), "--destination", dest.String()},
			code: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCLIEnv(t)
			if tt.setup != nil {
				tt.setup(t, env)
			}
			_, _, err := env.run(tt.args...)
			assert.Equal(t, tt.code, exitCode(t, err))
		})
	}
}

func TestMissingKeypairIsConfigError(t *testing.T) {
	env := newCLIEnv(t)
	env.keypair = filepath.Join(env.dir, "missing.json")

	_, _, err := env.run("balance", solana.NewWallet().PublicKey().String())
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "missing.json")
}

func TestCreateCommand(t *testing.T) {
	env := newCLIEnv(t)
	mintKey := solana.NewWallet().PrivateKey
	mintPath := writeKeypair(t, env.dir, "mint.json", mintKey)

	stdout, _, err := env.run("--json", "create",
		"--decimals", "2",
		"--initial-supply", "500",
		"--mint-keypair", mintPath,
	)
	require.NoError(t, err)

	var outcome issuer.Outcome
	require.NoError(t, json.Unmarshal([]byte(stdout), &outcome))
	assert.Equal(t, mintKey.PublicKey().String(), outcome.Mint)
	require.NotNil(t, outcome.Decimals)
	assert.Equal(t, uint8(2), *outcome.Decimals)
	assert.Equal(t, uint64(500), outcome.Amount)

	ata, err := solanasvc.AssociatedTokenAddress(env.signer.PublicKey(), mintKey.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, ata.String(), outcome.AssociatedTokenAccount)

	sent := env.rpc.SentTransactions()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].Message.Instructions, 4)
	assert.Equal(t, uint8(2), sent[0].Message.Header.NumRequiredSignatures)
}

func TestCreateCommand_InvalidDecimals(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run("create", "--decimals", "12")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Empty(t, env.rpc.SentTransactions())
}

func TestMetadataCommand(t *testing.T) {
	env := newCLIEnv(t)
	mint := solana.NewWallet().PublicKey()
	env.setMint(t, mint)

	file := filepath.Join(env.dir, "metadata.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: Test Token\nsymbol: TEST\nuri: https://example.com/test.json\n"), 0o600))

	stdout, _, err := env.run("--json", "metadata", "--mint", mint.String(), "--metadata-file", file, "--symbol", "TST")
	require.NoError(t, err)

	var outcome issuer.Outcome
	require.NoError(t, json.Unmarshal([]byte(stdout), &outcome))
	expected, err := metadata.FindAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), outcome.Metadata)
	assert.Equal(t, issuer.OperationMetadata, outcome.Operation)
}

func TestLoadMetadataOverrides(t *testing.T) {
	app := &cli.App{
		Flags: metadataFlags(),
		Action: func(c *cli.Context) error {
			data, err := loadMetadata(c, "")
			require.NoError(t, err)
			assert.Equal(t, "Other", data.Name)
			assert.Equal(t, metadata.DefaultSymbol, data.Symbol)
			assert.Equal(t, uint16(250), data.SellerFeeBasisPoints)
			assert.False(t, data.IsMutable)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"test", "--name", "Other", "--seller-fee-bps", "250", "--immutable"}))

	app.Action = func(c *cli.Context) error {
		_, err := loadMetadata(c, "")
		return err
	}
	err := app.Run([]string{"test", "--seller-fee-bps", "10001"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, solanasvc.ErrProtocol))
}

func TestMetadataCommand_MintNotFound(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run("metadata", "--mint", solana.NewWallet().PublicKey().String())
	assert.Equal(t, 5, exitCode(t, err))
	assert.Empty(t, env.rpc.SentTransactions())
}

func TestLaunchCommand_InvalidMetadataSubmitsNothing(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run("launch", "--symbol", "MUCHTOOLONGSYMBOL")
	assert.Equal(t, 5, exitCode(t, err))
	assert.Empty(t, env.rpc.SentTransactions())
}

func TestLaunchCommand_MetadataFailsAfterCreate(t *testing.T) {
	env := newCLIEnv(t)

	// the generated mint is never visible to the mock, so metadata fails
	_, stderr, err := env.run("launch")
	assert.Equal(t, 5, exitCode(t, err))
	assert.Len(t, env.rpc.SentTransactions(), 1)
	assert.Contains(t, stderr, "was created but metadata was not attached")
}

type fakeLauncher struct {
	input  temporal.LaunchTokenInput
	result *temporal.LaunchTokenResult
	err    error
	closed bool
}

func (f *fakeLauncher) ExecuteLaunch(_ context.Context, input temporal.LaunchTokenInput) (*temporal.LaunchTokenResult, error) {
	f.input = input
	return f.result, f.err
}

func (f *fakeLauncher) Close() { f.closed = true }

func useLauncher(t *testing.T, l *fakeLauncher) {
	t.Helper()
	orig := newLauncher
	newLauncher = func(*config.Config, *metrics.Metrics, *slog.Logger) (launcher, error) { return l, nil }
	t.Cleanup(func() { newLauncher = orig })
}

func TestLaunchCommand_Temporal(t *testing.T) {
	env := newCLIEnv(t)
	l := &fakeLauncher{result: &temporal.LaunchTokenResult{
		Create:   &issuer.Outcome{Mint: "Mint111", Signature: "sig-create"},
		Metadata: &issuer.Outcome{Mint: "Mint111", Signature: "sig-meta"},
	}}
	useLauncher(t, l)

	stdout, _, err := env.run("--jq", ".metadata.signature", "launch", "--temporal", "--decimals", "9", "--name", "Launch")
	require.NoError(t, err)
	assert.Equal(t, "sig-meta", strings.TrimSpace(stdout))

	assert.Equal(t, uint8(9), l.input.Decimals)
	assert.Equal(t, "Launch", l.input.Metadata.Name)
	assert.Equal(t, metadata.DefaultSymbol, l.input.Metadata.Symbol)
	assert.True(t, l.closed)
	assert.Empty(t, env.rpc.SentTransactions())
}

func TestLaunchCommand_TemporalFailure(t *testing.T) {
	env := newCLIEnv(t)
	useLauncher(t, &fakeLauncher{
		result: &temporal.LaunchTokenResult{Create: &issuer.Outcome{Mint: "Mint111"}},
		err:    solanasvc.RejectedError("launch", "", solanasvc.ReasonUnauthorized, errors.New("missing signature")),
	})

	_, stderr, err := env.run("launch", "--temporal")
	assert.Equal(t, 4, exitCode(t, err))
	assert.Contains(t, stderr, "Mint Mint111 was created")
}

func TestBalanceCommand(t *testing.T) {
	env := newCLIEnv(t)
	account := solana.NewWallet().PublicKey()
	env.rpc.SetBalance(account, "1500", 2)

	stdout, _, err := env.run("balance", account.String())
	require.NoError(t, err)
	assert.Equal(t, account.String()+": 1500 (1500 base units, 2 decimals)\n", stdout)

	stdout, _, err = env.run("--jq", ".amount", "balance", account.String())
	require.NoError(t, err)
	assert.Equal(t, "1500\n", stdout)
}

func TestMainnetRequiresConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	env.setTokenAccount(t, dest, mint)

	asked := 0
	confirmSubmit = func(string) (bool, error) {
		asked++
		return false, nil
	}

	args := []string{"--network-url", "https://api.mainnet-beta.solana.com",
		"mint", "--amount", "1", "--mint", mint.String(), "--destination", dest.String()}

	_, _, err := env.run(args...)
	assert.Equal(t, 2, exitCode(t, err))
	assert.Equal(t, 1, asked)
	assert.Empty(t, env.rpc.SentTransactions())

	_, _, err = env.run(append([]string{"--yes"}, args...)...)
	require.NoError(t, err)
	assert.Equal(t, 1, asked)
	assert.Len(t, env.rpc.SentTransactions(), 1)
}

func TestAddressCommands(t *testing.T) {
	env := newCLIEnv(t)
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	ata, err := solanasvc.AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	stdout, _, err := env.run("address", "ata", "--owner", owner.String(), "--mint", mint.String())
	require.NoError(t, err)
	assert.Equal(t, ata.String()+"\n", stdout)

	meta, err := metadata.FindAddress(mint)
	require.NoError(t, err)
	stdout, _, err = env.run("--json", "address", "metadata", "--mint", mint.String())
	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, meta.String(), out["metadata"])
}

func TestRunCommand(t *testing.T) {
	env := newCLIEnv(t)
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	env.setTokenAccount(t, dest, mint)

	t.Setenv("KEYPAIR_PATH", env.keypair)
	t.Setenv("OPERATION", "mint")
	t.Setenv("AMOUNT", "77")
	t.Setenv("MINT_ADDRESS", mint.String())
	t.Setenv("DESTINATION_ADDRESS", dest.String())
	t.Setenv("POLL_INTERVAL", "1ms")

	stdout, _, err := env.run("--json", "run")
	require.NoError(t, err)

	var outcome issuer.Outcome
	require.NoError(t, json.Unmarshal([]byte(stdout), &outcome))
	assert.Equal(t, uint64(77), outcome.Amount)
	assert.Len(t, env.rpc.SentTransactions(), 1)
}

func TestRunCommand_MissingFields(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("KEYPAIR_PATH", env.keypair)
	t.Setenv("OPERATION", "mint")
	t.Setenv("AMOUNT", "")
	t.Setenv("MINT_ADDRESS", "")
	t.Setenv("DESTINATION_ADDRESS", "")

	_, _, err := env.run("run")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "MintAddress is required")
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)
	stdout, _, err := env.run("version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mintctl dev")
}
