package solana

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AssociatedTokenAddress derives the associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, ProtocolError("derive_ata", owner.String(), fmt.Errorf("failed to derive associated token address: %w", err))
	}
	return addr, nil
}

// ParsePublicKey decodes a base58 address. field names the input in the error.
func ParsePublicKey(field, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, ConfigError("%s is required", field)
	}
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, ConfigError("invalid %s %q: %w", field, value, err)
	}
	return pk, nil
}

// ParseCommitment accepts processed, confirmed or finalized.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch c := rpc.CommitmentType(strings.ToLower(s)); c {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return c, nil
	}
	return "", ConfigError("invalid commitment %q (must be processed, confirmed, or finalized)", s)
}

// EndpointLabel reduces an RPC URL to a metrics label: the cluster name for
// public endpoints, the host otherwise. API keys in the query are dropped.
func EndpointLabel(rpcURL string) string {
	switch rpcURL {
	case rpc.DevNet_RPC:
		return "devnet"
	case rpc.TestNet_RPC:
		return "testnet"
	case rpc.MainNetBeta_RPC:
		return "mainnet"
	case rpc.LocalNet_RPC:
		return "localnet"
	}
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := u.Hostname()
	switch {
	case strings.Contains(host, "devnet"):
		return "devnet"
	case strings.Contains(host, "testnet"):
		return "testnet"
	case strings.Contains(host, "mainnet"):
		return "mainnet"
	}
	return host
}

// IsMainnet reports whether the endpoint looks like a mainnet node.
func IsMainnet(rpcURL string) bool {
	return EndpointLabel(rpcURL) == "mainnet"
}
