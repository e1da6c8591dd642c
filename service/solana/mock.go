package solana

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MockRPCClient is an in-memory RPCClient for tests. It is behaviour
// focused: set what it should return, then inspect what was sent.
//
// By default every blockhash request returns a new hash, every submitted
// transaction is accepted, and its first status poll reports it finalized.
type MockRPCClient struct {
	mu sync.RWMutex

	LastValidBlockHeight uint64
	BlockHeight          uint64
	RentLamports         uint64

	// Statuses is returned one entry per poll; the last entry repeats.
	// A nil entry means the node has not seen the signature.
	Statuses []*rpc.SignatureStatusesResult

	BlockhashErr   error
	BlockHeightErr error
	RentErr        error
	AccountErr     error
	BalanceErr     error
	SendErr        error
	StatusErr      error

	accounts    map[solana.PublicKey]*rpc.Account
	balances    map[solana.PublicKey]*rpc.UiTokenAmount
	blockhashes []solana.Hash
	sent        []*solana.Transaction
	statusCalls int
	rentQueries []uint64
}

// NewMockRPCClient creates a mock with a healthy chain.
func NewMockRPCClient() *MockRPCClient {
	return &MockRPCClient{
		LastValidBlockHeight: 1000,
		BlockHeight:          900,
		RentLamports:         1461600,
		accounts:             make(map[solana.PublicKey]*rpc.Account),
		balances:             make(map[solana.PublicKey]*rpc.UiTokenAmount),
	}
}

// SetAccount stores an account owned by owner holding data.
func (m *MockRPCClient) SetAccount(address, owner solana.PublicKey, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[address] = &rpc.Account{
		Lamports: 1,
		Owner:    owner,
		Data:     rpc.DataBytesOrJSONFromBytes(data),
	}
}

// SetBalance stores a token account balance.
func (m *MockRPCClient) SetBalance(address solana.PublicKey, amount string, decimals uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = &rpc.UiTokenAmount{
		Amount:         amount,
		Decimals:       decimals,
		UiAmountString: amount,
	}
}

// SentTransactions returns every transaction passed to SendTransactionWithOpts.
func (m *MockRPCClient) SentTransactions() []*solana.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*solana.Transaction, len(m.sent))
	copy(out, m.sent)
	return out
}

// Blockhashes returns every blockhash handed out, in order.
func (m *MockRPCClient) Blockhashes() []solana.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]solana.Hash, len(m.blockhashes))
	copy(out, m.blockhashes)
	return out
}

// StatusCalls returns how many times signature statuses were polled.
func (m *MockRPCClient) StatusCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusCalls
}

// RentQueries returns the account sizes rent was quoted for.
func (m *MockRPCClient) RentQueries() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint64, len(m.rentQueries))
	copy(out, m.rentQueries)
	return out
}

func (m *MockRPCClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BlockhashErr != nil {
		return nil, m.BlockhashErr
	}
	hash := solana.Hash(sha256.Sum256([]byte(fmt.Sprintf("blockhash-%d", len(m.blockhashes)))))
	m.blockhashes = append(m.blockhashes, hash)
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            hash,
			LastValidBlockHeight: m.LastValidBlockHeight,
		},
	}, nil
}

func (m *MockRPCClient) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.BlockHeightErr != nil {
		return 0, m.BlockHeightErr
	}
	return m.BlockHeight, nil
}

func (m *MockRPCClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RentErr != nil {
		return 0, m.RentErr
	}
	m.rentQueries = append(m.rentQueries, dataSize)
	return m.RentLamports, nil
}

func (m *MockRPCClient) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.AccountErr != nil {
		return nil, m.AccountErr
	}
	acc, ok := m.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (m *MockRPCClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	return &rpc.GetTokenAccountBalanceResult{Value: m.balances[account]}, nil
}

func (m *MockRPCClient) SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return solana.Signature{}, m.SendErr
	}
	m.sent = append(m.sent, transaction)
	if len(transaction.Signatures) == 0 {
		return solana.Signature{}, fmt.Errorf("transaction is not signed")
	}
	return transaction.Signatures[0], nil
}

func (m *MockRPCClient) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}

	var status *rpc.SignatureStatusesResult
	switch {
	case len(m.Statuses) == 0:
		status = &rpc.SignatureStatusesResult{
			Slot:               uint64(100 + len(m.sent)),
			ConfirmationStatus: rpc.ConfirmationStatusFinalized,
		}
	case m.statusCalls <= len(m.Statuses):
		status = m.Statuses[m.statusCalls-1]
	default:
		status = m.Statuses[len(m.Statuses)-1]
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{status},
	}, nil
}
