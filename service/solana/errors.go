package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Error kinds. Every error returned by this package (and by the orchestrator
// built on it) matches exactly one of these through errors.Is.
var (
	ErrConfig              = errors.New("configuration error")
	ErrNetwork             = errors.New("network error")
	ErrRejectedTransaction = errors.New("transaction rejected")
	ErrProtocol            = errors.New("protocol error")
)

// Rejection reasons.
const (
	ReasonBlockhashExpired  = "blockhash_expired"
	ReasonUnauthorized      = "unauthorized"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonRejected          = "rejected"
)

// OperationError carries the operation and the address it concerned along
// with one of the error kinds above.
type OperationError struct {
	Kind      error
	Operation string
	Address   string
	Reason    string
	Err       error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		b.WriteString(e.Operation)
	}
	if e.Address != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.Address)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool { return target == e.Kind }

// ConfigError builds an ErrConfig error.
func ConfigError(format string, args ...any) error {
	return &OperationError{Kind: ErrConfig, Err: fmt.Errorf(format, args...)}
}

// ProtocolError builds an ErrProtocol error for operation on address.
func ProtocolError(operation, address string, err error) error {
	return &OperationError{Kind: ErrProtocol, Operation: operation, Address: address, Err: err}
}

// NetworkError builds an ErrNetwork error for operation on address.
func NetworkError(operation, address string, err error) error {
	return &OperationError{Kind: ErrNetwork, Operation: operation, Address: address, Err: err}
}

// RejectedError builds an ErrRejectedTransaction error for operation on address.
func RejectedError(operation, address, reason string, err error) error {
	return &OperationError{Kind: ErrRejectedTransaction, Operation: operation, Address: address, Reason: reason, Err: err}
}

// Annotate fills in the operation and address of an OperationError that
// lacks them. Errors of any other type become network errors, since only
// the transport produces unclassified errors here.
func Annotate(err error, operation, address string) error {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Operation == "" {
			opErr.Operation = operation
		}
		if opErr.Address == "" {
			opErr.Address = address
		}
		return opErr
	}
	return NetworkError(operation, address, err)
}

// KindOf returns a short label for the error kind, for metrics and exit codes.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrRejectedTransaction):
		return "rejected"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "network"
	}
}

// KindFromLabel is the inverse of KindOf. Unknown labels map to ErrNetwork.
func KindFromLabel(label string) error {
	switch label {
	case "config":
		return ErrConfig
	case "rejected":
		return ErrRejectedTransaction
	case "protocol":
		return ErrProtocol
	default:
		return ErrNetwork
	}
}

// ReasonOf returns the rejection reason of err, if any.
func ReasonOf(err error) string {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Reason
	}
	return ""
}

// classifySendError maps an error from sendTransaction into the taxonomy.
// A JSON-RPC error object means the node saw and refused the transaction;
// anything else never got a verdict.
func classifySendError(err error, programs []solana.PublicKey) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NetworkError("", "", err)
	}
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return NetworkError("", "", err)
	}

	reason, detail := ReasonRejected, ""
	if data, ok := rpcErr.Data.(map[string]any); ok {
		if raw, ok := data["err"]; ok && raw != nil {
			reason, detail = describeTransactionError(raw, programs)
		}
	}
	if reason == ReasonRejected {
		reason = reasonFromMessage(rpcErr.Message)
	}

	msg := rpcErr.Message
	if detail != "" {
		msg = fmt.Sprintf("%s [%s]", msg, detail)
	}
	return RejectedError("", "", reason, errors.New(msg))
}

// classifyStatusError maps the err field of a signature status.
func classifyStatusError(raw any, programs []solana.PublicKey) error {
	reason, detail := describeTransactionError(raw, programs)
	return RejectedError("", "", reason, errors.New(detail))
}

func reasonFromMessage(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "blockhash not found"),
		strings.Contains(lower, "block height exceeded"):
		return ReasonBlockhashExpired
	case strings.Contains(lower, "insufficient funds"),
		strings.Contains(lower, "insufficient lamports"):
		return ReasonInsufficientFunds
	case strings.Contains(lower, "signature verification failure"),
		strings.Contains(lower, "missing required signature"):
		return ReasonUnauthorized
	}
	return ReasonRejected
}

var transactionErrorReasons = map[string]string{
	"BlockhashNotFound":        ReasonBlockhashExpired,
	"InsufficientFundsForFee":  ReasonInsufficientFunds,
	"InsufficientFundsForRent": ReasonInsufficientFunds,
	"AccountNotFound":          ReasonInsufficientFunds,
	"SignatureFailure":         ReasonUnauthorized,
	"MissingSignatureForFee":   ReasonUnauthorized,
}

var instructionErrorReasons = map[string]string{
	"MissingRequiredSignature": ReasonUnauthorized,
	"IllegalOwner":             ReasonUnauthorized,
	"InsufficientFunds":        ReasonInsufficientFunds,
}

// tokenErrors names the SPL Token program's custom error codes.
var tokenErrors = []string{
	"NotRentExempt",
	"InsufficientFunds",
	"InvalidMint",
	"MintMismatch",
	"OwnerMismatch",
	"FixedSupply",
	"AlreadyInUse",
	"InvalidNumberOfProvidedSigners",
	"InvalidNumberOfRequiredSigners",
	"UninitializedState",
	"NativeNotSupported",
	"NonNativeHasBalance",
	"InvalidInstruction",
	"InvalidState",
	"Overflow",
	"AuthorityTypeNotSupported",
	"MintCannotFreeze",
	"AccountFrozen",
	"MintDecimalsMismatch",
	"NonNativeNotSupported",
}

// systemErrors names the System program's custom error codes.
var systemErrors = []string{
	"AccountAlreadyInUse",
	"ResultWithNegativeLamports",
	"InvalidProgramId",
	"InvalidAccountDataLength",
	"MaxSeedLengthExceeded",
	"AddressWithSeedMismatch",
	"NonceNoRecentBlockhashes",
	"NonceBlockhashNotExpired",
	"NonceUnexpectedBlockhashValue",
}

// describeTransactionError interprets a TransactionError as the node
// serializes it: either a bare variant name, or a single-key object such as
// {"InstructionError": [1, {"Custom": 4}]}. programs holds the program id
// of each instruction so custom codes can be named.
func describeTransactionError(raw any, programs []solana.PublicKey) (reason, detail string) {
	switch v := raw.(type) {
	case string:
		if r, ok := transactionErrorReasons[v]; ok {
			return r, v
		}
		return ReasonRejected, v
	case map[string]any:
		if ie, ok := v["InstructionError"]; ok {
			return describeInstructionError(ie, programs)
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if r, ok := transactionErrorReasons[k]; ok {
				return r, k
			}
		}
		if len(keys) > 0 {
			return ReasonRejected, keys[0]
		}
	}
	b, _ := json.Marshal(raw)
	return ReasonRejected, string(b)
}

func describeInstructionError(raw any, programs []solana.PublicKey) (reason, detail string) {
	pair, ok := raw.([]any)
	if !ok || len(pair) != 2 {
		b, _ := json.Marshal(raw)
		return ReasonRejected, fmt.Sprintf("instruction error %s", b)
	}
	index := -1
	if n, ok := asInt(pair[0]); ok {
		index = int(n)
	}

	switch inner := pair[1].(type) {
	case string:
		detail = fmt.Sprintf("instruction %d: %s", index, inner)
		if r, ok := instructionErrorReasons[inner]; ok {
			return r, detail
		}
		return ReasonRejected, detail
	case map[string]any:
		code, ok := asInt(inner["Custom"])
		if !ok {
			b, _ := json.Marshal(inner)
			return ReasonRejected, fmt.Sprintf("instruction %d: %s", index, b)
		}
		var program solana.PublicKey
		if index >= 0 && index < len(programs) {
			program = programs[index]
		}
		return describeCustomError(index, uint32(code), program)
	}
	b, _ := json.Marshal(pair[1])
	return ReasonRejected, fmt.Sprintf("instruction %d: %s", index, b)
}

func describeCustomError(index int, code uint32, program solana.PublicKey) (reason, detail string) {
	detail = fmt.Sprintf("instruction %d: custom program error 0x%x", index, code)
	switch {
	case program.Equals(solana.TokenProgramID) && int(code) < len(tokenErrors):
		name := tokenErrors[code]
		detail = fmt.Sprintf("%s (%s)", detail, name)
		switch name {
		case "OwnerMismatch":
			return ReasonUnauthorized, detail
		case "InsufficientFunds":
			return ReasonInsufficientFunds, detail
		}
	case program.Equals(solana.SystemProgramID) && int(code) < len(systemErrors):
		name := systemErrors[code]
		detail = fmt.Sprintf("%s (%s)", detail, name)
		if name == "ResultWithNegativeLamports" {
			return ReasonInsufficientFunds, detail
		}
	}
	return ReasonRejected, detail
}

// asInt accepts both decodings of a JSON number: float64 from a plain
// decoder and json.Number from one with UseNumber set.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	}
	return 0, false
}

// isInvalidParams reports a JSON-RPC "invalid params" error, which nodes
// return for token queries against accounts that are not token accounts.
func isInvalidParams(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == -32602
}
