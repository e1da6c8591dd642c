package solana

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// DefaultKeypairPath is where solana-keygen writes the default wallet.
const DefaultKeypairPath = "~/.config/solana/id.json"

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// LoadKeypair reads a solana-keygen JSON file (a 64 byte array).
// Failures are configuration errors naming the attempted path.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	if path == "" {
		return nil, ConfigError("keypair path is empty")
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, ConfigError("failed to resolve keypair path %q: %w", path, err)
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(resolved)
	if err != nil {
		return nil, ConfigError("failed to load keypair from %s: %w", resolved, err)
	}
	if len(key) != 64 {
		return nil, ConfigError("invalid keypair in %s: expected 64 bytes, got %d", resolved, len(key))
	}
	return key, nil
}
