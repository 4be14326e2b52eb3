package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"solana-airdrop/internal/solana"
)

const (
	defaultMintCacheSize    = 64
	defaultAccountCacheSize = 4096
)

var (
	// ErrAccountNotFound is returned when an account does not exist on chain.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotMint is returned when an account is not an SPL token mint.
	ErrNotMint = errors.New("account is not a token mint")
	// ErrNotTokenAccount is returned when a derived token account is owned by another program.
	ErrNotTokenAccount = errors.New("account is not a token account")
)

// TransferParams describes one TransferChecked instruction signed by the wallet.
type TransferParams struct {
	Source      string // sender token account
	Destination string // recipient token account
	Mint        string
	Amount      uint64 // base units
	Decimals    uint8
}

// Client performs SPL token operations on behalf of one wallet.
type Client struct {
	rpc       solana.RPCClient
	confirmer *solana.Confirmer
	wallet    *Wallet
	log       *logrus.Entry

	decimals *lru.Cache[string, uint8]
	accounts *lru.Cache[string, struct{}]
}

// Option configures Client.
type Option func(*Client)

// WithConfirmer replaces the default polling confirmer.
func WithConfirmer(c *solana.Confirmer) Option {
	return func(cl *Client) {
		cl.confirmer = c
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(cl *Client) {
		cl.log = log
	}
}

// NewClient creates a chain client that pays fees and signs with wallet.
func NewClient(rpc solana.RPCClient, wallet *Wallet, opts ...Option) (*Client, error) {
	if rpc == nil {
		return nil, errors.New("rpc client is required")
	}
	if wallet == nil {
		return nil, errors.New("wallet is required")
	}

	decimals, err := lru.New[string, uint8](defaultMintCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create mint cache: %w", err)
	}
	accounts, err := lru.New[string, struct{}](defaultAccountCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create account cache: %w", err)
	}

	c := &Client{
		rpc:      rpc,
		wallet:   wallet,
		log:      logrus.NewEntry(logrus.StandardLogger()),
		decimals: decimals,
		accounts: accounts,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.confirmer == nil {
		c.confirmer = solana.NewConfirmer(rpc)
	}
	return c, nil
}

// ValidateAddress reports whether address is a syntactically valid Solana address.
func (c *Client) ValidateAddress(address string) bool {
	return solana.IsValidAddress(address)
}

// MintDecimals returns the decimals declared by mint. Results are cached.
func (c *Client) MintDecimals(ctx context.Context, mint string) (uint8, error) {
	if d, ok := c.decimals.Get(mint); ok {
		return d, nil
	}

	info, err := c.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("get mint %s: %w", mint, err)
	}
	if info == nil {
		return 0, fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}
	if info.Owner != solana.TokenProgramID {
		return 0, fmt.Errorf("%s owned by %s: %w", mint, info.Owner, ErrNotMint)
	}
	d, err := solana.ParseMintDecimals(info.Data)
	if err != nil {
		return 0, fmt.Errorf("mint %s: %w", mint, err)
	}

	c.decimals.Add(mint, d)
	return d, nil
}

// GetOrCreateTokenAccount returns the associated token account of owner for mint,
// creating it (paid by the wallet) and waiting for confirmation when missing.
func (c *Client) GetOrCreateTokenAccount(ctx context.Context, owner, mint string) (string, error) {
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", err
	}
	if c.accounts.Contains(ata) {
		return ata, nil
	}

	info, err := c.rpc.GetAccountInfo(ctx, ata)
	if err != nil {
		return "", fmt.Errorf("get token account %s: %w", ata, err)
	}
	if info != nil {
		if info.Owner != solana.TokenProgramID {
			return "", fmt.Errorf("%s owned by %s: %w", ata, info.Owner, ErrNotTokenAccount)
		}
		c.accounts.Add(ata, struct{}{})
		return ata, nil
	}

	ownerKey, err := sol.PublicKeyFromBase58(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintKey, err := sol.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	ix, err := associatedtokenaccount.NewCreateInstruction(c.wallet.publicKey(), ownerKey, mintKey).ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("build create account instruction: %w", err)
	}

	sig, err := c.send(ctx, ix)
	if err != nil {
		return "", fmt.Errorf("create token account %s: %w", ata, err)
	}
	if err := c.confirmer.Confirm(ctx, sig); err != nil {
		return "", fmt.Errorf("create token account %s: %w", ata, err)
	}

	c.log.WithFields(logrus.Fields{
		"owner":     owner,
		"account":   ata,
		"signature": sig,
	}).Info("created token account")

	c.accounts.Add(ata, struct{}{})
	return ata, nil
}

// Transfer submits a TransferChecked instruction and returns its signature.
// It does not wait for confirmation.
func (c *Client) Transfer(ctx context.Context, p TransferParams) (string, error) {
	source, err := sol.PublicKeyFromBase58(p.Source)
	if err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	dest, err := sol.PublicKeyFromBase58(p.Destination)
	if err != nil {
		return "", fmt.Errorf("destination: %w", err)
	}
	mint, err := sol.PublicKeyFromBase58(p.Mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}

	ix, err := token.NewTransferCheckedInstruction(
		p.Amount,
		p.Decimals,
		source,
		mint,
		dest,
		c.wallet.publicKey(),
		nil,
	).ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("build transfer instruction: %w", err)
	}

	return c.send(ctx, ix)
}

// ConfirmTransaction waits until signature is confirmed.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) error {
	return c.confirmer.Confirm(ctx, signature)
}

// send builds a transaction paid and signed by the wallet and submits it.
func (c *Client) send(ctx context.Context, instructions ...sol.Instruction) (string, error) {
	bh, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get blockhash: %w", err)
	}
	hash, err := sol.HashFromBase58(bh.Blockhash)
	if err != nil {
		return "", fmt.Errorf("parse blockhash: %w", err)
	}

	tx, err := sol.NewTransaction(instructions, hash, sol.TransactionPayer(c.wallet.publicKey()))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(c.wallet.signer); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}

	return c.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(raw))
}
