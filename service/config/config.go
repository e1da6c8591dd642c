package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	solanasvc "github.com/brojonat/mintctl/service/solana"
)

// Operation names accepted in configuration.
const (
	OperationMint     = "mint_token"
	OperationCreate   = "create_token"
	OperationMetadata = "update_metadata"
	OperationLaunch   = "launch"
)

const (
	DefaultNetworkURL    = "https://api.devnet.solana.com"
	DefaultDecimals      = 6
	DefaultInitialSupply = 100000000
	// MintAccountSpace is the size of an SPL token mint account.
	MintAccountSpace = 82
	MaxDecimals  = 9

	// DefaultLogLevel keeps the CLI quiet; the worker logs its lifecycle.
	DefaultLogLevel       = "warn"
	DefaultWorkerLogLevel = "info"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Operation configuration
	NetworkURL         string
	KeypairPath        string
	Amount             uint64
	MintAddress        string
	DestinationAddress string
	Operation          string

	// Transaction configuration
	Commitment    string
	PollInterval  time.Duration
	Decimals      uint8
	InitialSupply uint64
	MintSpace     uint64
	MetadataFile  string

	LogLevel string

	// NATS configuration (empty disables event publishing)
	NATSURL string

	// Metrics configuration
	PushgatewayURL string
	MetricsAddr    string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
}

// Load reads configuration from environment variables and validates it.
// All problems are reported together in one configuration error.
func Load() (*Config, error) {
	return load(DefaultLogLevel)
}

// LoadWorker is like Load with the worker's defaults.
func LoadWorker() (*Config, error) {
	return load(DefaultWorkerLogLevel)
}

func load(logLevel string) (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.NetworkURL = getEnvOrDefault("NETWORK_URL", DefaultNetworkURL)
	cfg.KeypairPath = getEnvOrDefault("KEYPAIR_PATH", solanasvc.DefaultKeypairPath)
	cfg.MintAddress = os.Getenv("MINT_ADDRESS")
	cfg.DestinationAddress = os.Getenv("DESTINATION_ADDRESS")
	cfg.Operation = os.Getenv("OPERATION")
	cfg.MetadataFile = os.Getenv("METADATA_FILE")

	amount, err := parseUint("AMOUNT", 0, 64)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Amount = amount

	cfg.Commitment = getEnvOrDefault("COMMITMENT", "confirmed")
	pollInterval, err := parseDuration("POLL_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	}
	cfg.PollInterval = pollInterval

	decimals, err := parseUint("DECIMALS", DefaultDecimals, 8)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Decimals = uint8(decimals)

	supply, err := parseUint("INITIAL_SUPPLY", DefaultInitialSupply, 64)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.InitialSupply = supply

	space, err := parseUint("MINT_SPACE", MintAccountSpace, 64)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MintSpace = space

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", logLevel)

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9090")

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "mintctl-launch")

	if len(errs) > 0 {
		return nil, solanasvc.ConfigError("configuration validation failed: %v", errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// MustLoadWorker is like LoadWorker but panics if configuration is invalid.
func MustLoadWorker() *Config {
	cfg, err := LoadWorker()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks the configuration, including the fields the configured
// operation needs. An empty Operation only checks the shared fields.
func (c *Config) Validate() error {
	var errs []error

	if c.NetworkURL == "" {
		errs = append(errs, fmt.Errorf("NetworkURL is required"))
	}
	if c.KeypairPath == "" {
		errs = append(errs, fmt.Errorf("KeypairPath is required"))
	}
	if _, err := solanasvc.ParseCommitment(c.Commitment); err != nil {
		errs = append(errs, fmt.Errorf("Commitment %q must be processed, confirmed, or finalized", c.Commitment))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("PollInterval must be positive"))
	}
	if c.Decimals > MaxDecimals {
		errs = append(errs, fmt.Errorf("Decimals must be at most %d", MaxDecimals))
	}
	if c.MintSpace != MintAccountSpace {
		errs = append(errs, fmt.Errorf("MintSpace must be exactly %d bytes", MintAccountSpace))
	}

	if c.Operation != "" {
		op, err := NormalizeOperation(c.Operation)
		if err != nil {
			errs = append(errs, err)
		}
		switch op {
		case OperationMint:
			if c.Amount == 0 {
				errs = append(errs, fmt.Errorf("Amount must be greater than zero"))
			}
			if c.MintAddress == "" {
				errs = append(errs, fmt.Errorf("MintAddress is required for %s", op))
			}
			if c.DestinationAddress == "" {
				errs = append(errs, fmt.Errorf("DestinationAddress is required for %s", op))
			}
		case OperationMetadata:
			if c.MintAddress == "" {
				errs = append(errs, fmt.Errorf("MintAddress is required for %s", op))
			}
		}
	}

	if len(errs) > 0 {
		return solanasvc.ConfigError("configuration validation failed: %v", errs)
	}
	return nil
}

// NormalizeOperation maps the accepted spellings of an operation to its
// canonical name.
func NormalizeOperation(op string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "mint", "mint_token":
		return OperationMint, nil
	case "create", "create_token":
		return OperationCreate, nil
	case "metadata", "update_metadata":
		return OperationMetadata, nil
	case "launch":
		return OperationLaunch, nil
	}
	return "", fmt.Errorf("unknown operation %q (must be mint, create, metadata, or launch)", op)
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseUint parses an unsigned integer of bitSize bits from an environment
// variable or uses a default.
func parseUint(key string, defaultValue uint64, bitSize int) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid unsigned integer %q: %w", key, value, err)
	}
	return result, nil
}
