package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-airdrop/internal/solana"
)

// ErrNotFound is returned when a requested entry is not in the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Sent transactions are recorded and immediately reported with Status.
type RPCClient struct {
	mu sync.Mutex

	Accounts  map[string]*solana.AccountInfo
	Statuses  map[string]*solana.SignatureStatus
	Blockhash string

	// Sent holds every transaction passed to SendTransaction, in order.
	Sent []string
	// SendErr, when set, is returned by SendTransaction for the given call index (0-based).
	SendErr map[int]error
	// Status is assigned to each newly sent signature; nil leaves it unknown.
	Status *solana.SignatureStatus
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:  make(map[string]*solana.AccountInfo),
		Statuses:  make(map[string]*solana.SignatureStatus),
		Blockhash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		SendErr:   make(map[int]error),
		Status:    &solana.SignatureStatus{Slot: 1, ConfirmationStatus: solana.CommitmentConfirmed},
	}
}

// GetAccountInfo retrieves an account from the stub store. Unknown accounts return nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	infoCopy := *info
	return &infoCopy, nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	if c.Blockhash == "" {
		return nil, ErrNotFound
	}
	return &solana.Blockhash{Blockhash: c.Blockhash, LastValidBlockHeight: 1000}, nil
}

// SendTransaction records the transaction and returns a synthetic signature.
func (c *RPCClient) SendTransaction(_ context.Context, encodedTx string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := len(c.Sent)
	c.Sent = append(c.Sent, encodedTx)
	if err, ok := c.SendErr[idx]; ok {
		return "", err
	}

	sig := fmt.Sprintf("stubsig%d", idx)
	if c.Status != nil {
		status := *c.Status
		c.Statuses[sig] = &status
	}
	return sig, nil
}

// GetSignatureStatuses returns statuses from the stub store.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			stCopy := *st
			out[i] = &stCopy
		}
	}
	return out, nil
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// SentCount returns the number of transactions sent so far.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

var _ solana.RPCClient = (*RPCClient)(nil)

// SetStatus replaces the status reported for signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}
