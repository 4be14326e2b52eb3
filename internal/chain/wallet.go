package chain

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	sol "github.com/gagliardetto/solana-go"
)

// ErrInvalidSecretKey is returned when a wallet secret cannot be decoded.
var ErrInvalidSecretKey = errors.New("invalid wallet secret key")

// Wallet holds the sender keypair.
type Wallet struct {
	key sol.PrivateKey
}

// NewWallet decodes a base58 encoded 64-byte ed25519 secret key.
func NewWallet(secret string) (*Wallet, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSecretKey)
	}
	key, err := sol.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidSecretKey, len(key))
	}
	// The trailing 32 bytes must be the public key of the leading seed.
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived, key) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidSecretKey)
	}
	return &Wallet{key: key}, nil
}

// PublicKey returns the base58 wallet address.
func (w *Wallet) PublicKey() string {
	return w.key.PublicKey().String()
}

// SecretKey returns a copy of the 64-byte secret key.
func (w *Wallet) SecretKey() []byte {
	out := make([]byte, len(w.key))
	copy(out, w.key)
	return out
}

func (w *Wallet) publicKey() sol.PublicKey {
	return w.key.PublicKey()
}

func (w *Wallet) signer(key sol.PublicKey) *sol.PrivateKey {
	if key.Equals(w.key.PublicKey()) {
		return &w.key
	}
	return nil
}
