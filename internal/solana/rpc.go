package solana

import "context"

// RPCClient defines the Solana RPC HTTP methods needed to move SPL tokens.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash retrieves the most recent blockhash for transaction construction.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a base64 encoded signed transaction and returns its signature.
	SendTransaction(ctx context.Context, encodedTx string) (string, error)

	// GetSignatureStatuses retrieves the statuses of a list of signatures.
	// Entries are nil for signatures the node does not know about.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)
}
