package airdrop

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"solana-airdrop/internal/chain"
	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/solana"
)

const (
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testSender = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

// testAddress returns a distinct valid address for i.
func testAddress(i int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("recipient-%d", i)))
	return base58.Encode(sum[:])
}

func testRecipients(n int, amount string) []domain.ValidatedRecipient {
	out := make([]domain.ValidatedRecipient, n)
	for i := range out {
		out[i] = domain.ValidatedRecipient{Address: testAddress(i), Amount: decimal.RequireFromString(amount)}
	}
	return out
}

// fakeChain records transfers and fails on demand, keyed by recipient owner.
type fakeChain struct {
	mu sync.Mutex

	decimals    uint8
	decimalsErr error
	senderErr   error

	accountErr  map[string]error // GetOrCreateTokenAccount failure by owner
	transferErr map[string]error // Transfer failure by owner
	flaky       map[string]int   // Transfer fails this many times before succeeding
	confirmErr  map[string]error // ConfirmTransaction failure by owner

	transfers []chain.TransferParams
	attempts  map[string]int
	sigOwner  map[string]string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		decimals:    6,
		accountErr:  make(map[string]error),
		transferErr: make(map[string]error),
		flaky:       make(map[string]int),
		confirmErr:  make(map[string]error),
		attempts:    make(map[string]int),
		sigOwner:    make(map[string]string),
	}
}

func (f *fakeChain) ValidateAddress(address string) bool {
	return solana.IsValidAddress(address)
}

func (f *fakeChain) MintDecimals(context.Context, string) (uint8, error) {
	return f.decimals, f.decimalsErr
}

func (f *fakeChain) GetOrCreateTokenAccount(_ context.Context, owner, mint string) (string, error) {
	if owner == testSender && f.senderErr != nil {
		return "", f.senderErr
	}
	if err := f.accountErr[owner]; err != nil {
		return "", err
	}
	return "ata:" + owner + ":" + mint, nil
}

func (f *fakeChain) Transfer(_ context.Context, p chain.TransferParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	owner := strings.Split(p.Destination, ":")[1]
	f.attempts[owner]++
	if err := f.transferErr[owner]; err != nil {
		return "", err
	}
	if f.attempts[owner] <= f.flaky[owner] {
		return "", fmt.Errorf("blockhash not found")
	}

	f.transfers = append(f.transfers, p)
	sig := fmt.Sprintf("sig-%d", len(f.transfers))
	f.sigOwner[sig] = owner
	return sig, nil
}

func (f *fakeChain) ConfirmTransaction(_ context.Context, sig string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmErr[f.sigOwner[sig]]
}

func (f *fakeChain) transferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

type fakeProvider struct {
	calls int
	last  domain.BulkTransferRequest
	ref   string
	err   error
}

func (p *fakeProvider) Airdrop(_ context.Context, req domain.BulkTransferRequest) (string, error) {
	p.calls++
	p.last = req
	return p.ref, p.err
}

type fakeSigner struct{}

func (fakeSigner) PublicKey() string { return testSender }
func (fakeSigner) SecretKey() []byte { return []byte{1, 2, 3} }
