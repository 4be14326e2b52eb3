// Package airdrop validates recipient lists and distributes SPL tokens to them,
// either one transfer per recipient or through a bulk transfer provider.
package airdrop

import (
	"context"

	"solana-airdrop/internal/chain"
	"solana-airdrop/internal/domain"
)

// DefaultDirectThreshold is the batch size at which runs switch to the aggregated path.
const DefaultDirectThreshold = 10

// ChainClient performs on-chain token operations for the sender wallet.
type ChainClient interface {
	ValidateAddress(address string) bool
	MintDecimals(ctx context.Context, mint string) (uint8, error)
	GetOrCreateTokenAccount(ctx context.Context, owner, mint string) (string, error)
	Transfer(ctx context.Context, p chain.TransferParams) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
}

// BulkTransferProvider distributes a whole batch in one call and returns one reference.
type BulkTransferProvider interface {
	Airdrop(ctx context.Context, req domain.BulkTransferRequest) (string, error)
}

// Signer exposes the sender keypair.
type Signer interface {
	PublicKey() string
	SecretKey() []byte
}

var (
	_ ChainClient = (*chain.Client)(nil)
	_ Signer      = (*chain.Wallet)(nil)
)
