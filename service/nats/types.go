package nats

import (
	"time"
)

// OperationEvent describes the outcome of one token operation.
// It is published to the subject "tokens.{operation}.{mint}" in JetStream.
type OperationEvent struct {
	// Operation identifiers
	Operation string `json:"operation"` // mint_token, create_token, update_metadata
	Status    string `json:"status"`    // confirmed, rejected, failed
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`

	// Accounts
	Mint    string `json:"mint"`
	Address string `json:"address,omitempty"` // destination, ATA or metadata account
	Signer  string `json:"signer"`

	// Transaction details
	Signature string `json:"signature,omitempty"`
	Slot      uint64 `json:"slot,omitempty"`
	Blockhash string `json:"blockhash,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	Network   string `json:"network"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the subject the event is published to.
func (e *OperationEvent) Subject() string {
	mint := e.Mint
	if mint == "" {
		mint = "unknown"
	}
	return SubjectPrefix + "." + e.Operation + "." + mint
}
