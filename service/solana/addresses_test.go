package solana

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociatedTokenAddress(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	first, err := AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	second, err := AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	expected, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], solana.TokenProgramID[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	require.NoError(t, err)
	assert.Equal(t, expected, first)

	other, err := AssociatedTokenAddress(solana.NewWallet().PublicKey(), mint)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestParsePublicKey(t *testing.T) {
	pk, err := ParsePublicKey("mint_address", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, err)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", pk.String())

	_, err = ParsePublicKey("mint_address", "not-base58!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "mint_address")

	_, err = ParsePublicKey("destination_address", "")
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestParseCommitment(t *testing.T) {
	c, err := ParseCommitment("Finalized")
	require.NoError(t, err)
	assert.Equal(t, rpc.CommitmentFinalized, c)

	_, err = ParseCommitment("recent")
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{rpc.DevNet_RPC, "devnet"},
		{rpc.MainNetBeta_RPC, "mainnet"},
		{"https://mainnet.helius-rpc.com/?api-key=secret", "mainnet"},
		{"https://my-node.example.com:8899", "my-node.example.com"},
		{"::not a url", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EndpointLabel(tt.url), tt.url)
	}
	assert.True(t, IsMainnet(rpc.MainNetBeta_RPC))
	assert.False(t, IsMainnet(rpc.DevNet_RPC))
}
