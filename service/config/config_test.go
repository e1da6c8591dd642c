package config

import (
	"errors"
	"testing"
	"time"

	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"NETWORK_URL", "KEYPAIR_PATH", "AMOUNT", "MINT_ADDRESS", "DESTINATION_ADDRESS",
	"OPERATION", "METADATA_FILE", "COMMITMENT", "POLL_INTERVAL", "DECIMALS",
	"INITIAL_SUPPLY", "MINT_SPACE", "LOG_LEVEL", "NATS_URL", "PUSHGATEWAY_URL",
	"METRICS_ADDR", "TEMPORAL_HOST", "TEMPORAL_NAMESPACE", "TEMPORAL_TASK_QUEUE",
}

// clearEnv blanks every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultNetworkURL, cfg.NetworkURL)
	assert.Equal(t, "~/.config/solana/id.json", cfg.KeypairPath)
	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, uint8(6), cfg.Decimals)
	assert.Equal(t, uint64(100000000), cfg.InitialSupply)
	assert.Equal(t, uint64(82), cfg.MintSpace)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "mintctl-launch", cfg.TemporalTaskQueue)
}

func TestLoadWorker_LogLevel(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)

	t.Setenv("LOG_LEVEL", "debug")
	cfg, err = LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MintOperation(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPERATION", "mint")
	t.Setenv("AMOUNT", "1000000")
	t.Setenv("MINT_ADDRESS", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	t.Setenv("DESTINATION_ADDRESS", "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	t.Setenv("NETWORK_URL", "http://127.0.0.1:8899")
	t.Setenv("COMMITMENT", "finalized")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000), cfg.Amount)
	assert.Equal(t, "mint", cfg.Operation)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.NetworkURL)
	assert.Equal(t, "finalized", cfg.Commitment)
}

func TestLoad_AccumulatesErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("AMOUNT", "-5")
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("DECIMALS", "300")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, solanasvc.ErrConfig))
	assert.Contains(t, err.Error(), "AMOUNT")
	assert.Contains(t, err.Error(), "invalid duration")
	assert.Contains(t, err.Error(), "DECIMALS")
}

func TestLoad_MintOperationMissingFields(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPERATION", "mint_token")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Amount must be greater than zero")
	assert.Contains(t, err.Error(), "MintAddress is required")
	assert.Contains(t, err.Error(), "DestinationAddress is required")
}

func validConfig() *Config {
	return &Config{
		NetworkURL:   DefaultNetworkURL,
		KeypairPath:  "/tmp/id.json",
		Commitment:   "confirmed",
		PollInterval: time.Second,
		Decimals:     DefaultDecimals,
		MintSpace:    MintAccountSpace,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing network", func(c *Config) { c.NetworkURL = "" }, "NetworkURL is required"},
		{"missing keypair", func(c *Config) { c.KeypairPath = "" }, "KeypairPath is required"},
		{"bad commitment", func(c *Config) { c.Commitment = "recent" }, "Commitment"},
		{"too many decimals", func(c *Config) { c.Decimals = 10 }, "Decimals must be at most 9"},
		{"space below mint size", func(c *Config) { c.MintSpace = 81 }, "MintSpace must be exactly 82"},
		{"space above mint size", func(c *Config) { c.MintSpace = 165 }, "MintSpace must be exactly 82"},
		{"unknown operation", func(c *Config) { c.Operation = "burn" }, "unknown operation"},
		{"metadata needs mint", func(c *Config) { c.Operation = "metadata" }, "MintAddress is required for update_metadata"},
		{"create needs nothing else", func(c *Config) { c.Operation = "create" }, ""},
		{"launch needs nothing else", func(c *Config) { c.Operation = "launch" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, solanasvc.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeOperation(t *testing.T) {
	for in, want := range map[string]string{
		"mint":            OperationMint,
		"MINT_TOKEN":      OperationMint,
		"create":          OperationCreate,
		"create_token":    OperationCreate,
		" metadata ":      OperationMetadata,
		"update_metadata": OperationMetadata,
		"launch":          OperationLaunch,
	} {
		got, err := NormalizeOperation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeOperation("transfer")
	assert.Error(t, err)
}

func TestMustLoad_Panics(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMMITMENT", "recent")

	assert.Panics(t, func() {
		MustLoad()
	})
}
