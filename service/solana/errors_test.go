package solana

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationError(t *testing.T) {
	err := RejectedError("mint_token", "Mint111", ReasonBlockhashExpired, errors.New("block height exceeded"))

	assert.True(t, errors.Is(err, ErrRejectedTransaction))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "mint_token Mint111: transaction rejected (blockhash_expired): block height exceeded", err.Error())

	wrapped := fmt.Errorf("launch failed: %w", err)
	assert.True(t, errors.Is(wrapped, ErrRejectedTransaction))
	assert.Equal(t, ReasonBlockhashExpired, ReasonOf(wrapped))
	assert.Equal(t, "rejected", KindOf(wrapped))
}

func TestAnnotate(t *testing.T) {
	t.Run("fills missing context", func(t *testing.T) {
		err := Annotate(ProtocolError("", "", errors.New("bad")), "create_token", "MintX")
		assert.Equal(t, "create_token MintX: protocol error: bad", err.Error())
	})

	t.Run("keeps existing context", func(t *testing.T) {
		err := Annotate(ProtocolError("update_metadata", "Meta", errors.New("bad")), "launch", "MintX")
		assert.Contains(t, err.Error(), "update_metadata Meta")
	})

	t.Run("unclassified errors become network errors", func(t *testing.T) {
		err := Annotate(errors.New("EOF"), "mint_token", "MintX")
		assert.True(t, errors.Is(err, ErrNetwork))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Annotate(nil, "mint_token", ""))
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "", KindOf(nil))
	assert.Equal(t, "config", KindOf(ConfigError("missing %s", "keypair")))
	assert.Equal(t, "protocol", KindOf(ProtocolError("", "", errors.New("x"))))
	assert.Equal(t, "network", KindOf(NetworkError("", "", errors.New("x"))))
	assert.Equal(t, "network", KindOf(errors.New("plain")))
}

func TestKindFromLabel(t *testing.T) {
	for _, kind := range []error{ErrConfig, ErrNetwork, ErrRejectedTransaction, ErrProtocol} {
		label := KindOf(&OperationError{Kind: kind})
		assert.Equal(t, kind, KindFromLabel(label), label)
	}
	assert.Equal(t, ErrNetwork, KindFromLabel("bogus"))
}

func TestDescribeTransactionError(t *testing.T) {
	programs := []solana.PublicKey{solana.SystemProgramID, solana.TokenProgramID}

	decode := func(s string) any {
		var v any
		require.NoError(t, json.Unmarshal([]byte(s), &v))
		return v
	}

	tests := []struct {
		name       string
		raw        any
		wantReason string
		wantDetail string
	}{
		{"blockhash not found", "BlockhashNotFound", ReasonBlockhashExpired, "BlockhashNotFound"},
		{"fee payer unfunded", "AccountNotFound", ReasonInsufficientFunds, "AccountNotFound"},
		{"rent", decode(`{"InsufficientFundsForRent":{"account_index":1}}`), ReasonInsufficientFunds, "InsufficientFundsForRent"},
		{"token owner mismatch", decode(`{"InstructionError":[1,{"Custom":4}]}`), ReasonUnauthorized, "instruction 1: custom program error 0x4 (OwnerMismatch)"},
		{"token insufficient funds", decode(`{"InstructionError":[1,{"Custom":1}]}`), ReasonInsufficientFunds, "instruction 1: custom program error 0x1 (InsufficientFunds)"},
		{"system account in use", decode(`{"InstructionError":[0,{"Custom":0}]}`), ReasonRejected, "instruction 0: custom program error 0x0 (AccountAlreadyInUse)"},
		{"system negative lamports", decode(`{"InstructionError":[0,{"Custom":1}]}`), ReasonInsufficientFunds, "instruction 0: custom program error 0x1 (ResultWithNegativeLamports)"},
		{"missing signature", decode(`{"InstructionError":[0,"MissingRequiredSignature"]}`), ReasonUnauthorized, "instruction 0: MissingRequiredSignature"},
		{"unknown program", decode(`{"InstructionError":[5,{"Custom":9}]}`), ReasonRejected, "instruction 5: custom program error 0x9"},
		{"number decoding", map[string]any{"InstructionError": []any{json.Number("1"), map[string]any{"Custom": json.Number("4")}}}, ReasonUnauthorized, "instruction 1: custom program error 0x4 (OwnerMismatch)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, detail := describeTransactionError(tt.raw, programs)
			assert.Equal(t, tt.wantReason, reason)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestReasonFromMessage(t *testing.T) {
	assert.Equal(t, ReasonBlockhashExpired, reasonFromMessage("Transaction simulation failed: Blockhash not found"))
	assert.Equal(t, ReasonInsufficientFunds, reasonFromMessage("Attempt to debit an account but found no record of a prior credit. insufficient funds"))
	assert.Equal(t, ReasonUnauthorized, reasonFromMessage("Transaction signature verification failure"))
	assert.Equal(t, ReasonRejected, reasonFromMessage("something else"))
}
