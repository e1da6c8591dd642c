package solana

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Stage is a step of the submission pipeline:
// Built -> Signed -> Submitted -> Confirmed | Rejected.
type Stage string

const (
	StageBuilt     Stage = "built"
	StageSigned    Stage = "signed"
	StageSubmitted Stage = "submitted"
	StageConfirmed Stage = "confirmed"
	StageRejected  Stage = "rejected"
)

// Blockhash is a recent blockhash and the last block height at which a
// transaction referencing it can still land.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// SubmitParams describes one atomic transaction.
type SubmitParams struct {
	Operation    string           // name used in logs, metrics and errors
	Address      string           // primary address the operation concerns
	FeePayer     solana.PublicKey // must be among Signers
	Instructions []solana.Instruction
	Signers      []solana.PrivateKey
}

// Receipt describes a confirmed transaction.
type Receipt struct {
	Signature            solana.Signature
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
	ConfirmationStatus   rpc.ConfirmationStatusType
	Stage                Stage
}

// TokenBalance is the balance of a token account.
type TokenBalance struct {
	Account        solana.PublicKey `json:"account"`
	Amount         string           `json:"amount"`
	Decimals       uint8            `json:"decimals"`
	UIAmountString string           `json:"ui_amount_string"`
}
