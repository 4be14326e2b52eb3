package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// PublicKeyLength is the size of an ed25519 public key.
const PublicKeyLength = 32

// ErrInvalidAddress is returned when a string is not a base58 encoded 32-byte key.
var ErrInvalidAddress = errors.New("invalid address")

// DecodeAddress decodes a base58 address into its 32 raw bytes.
func DecodeAddress(address string) ([]byte, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != PublicKeyLength {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(decoded))
	}
	return decoded, nil
}

// IsValidAddress reports whether address is a syntactically valid Solana address.
// Existence or balance is not checked. Off-curve addresses (PDAs) are accepted.
func IsValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// FindAssociatedTokenAddress derives the associated token account for owner and mint.
func FindAssociatedTokenAddress(owner, mint string) (string, error) {
	ownerKey, err := DecodeAddress(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintKey, err := DecodeAddress(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgram, _ := base58.Decode(TokenProgramID)
	ataProgram, _ := base58.Decode(AssociatedTokenProgramID)

	addr := derivePDA([][]byte{ownerKey, tokenProgram, mintKey}, ataProgram)
	if addr == "" {
		return "", fmt.Errorf("no viable bump seed for owner %s", owner)
	}
	return addr, nil
}

// derivePDA derives a Program Derived Address using the Solana algorithm:
// sha256(seeds || bump || program_id || "ProgramDerivedAddress"),
// taking the first bump from 255 down whose hash is off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// SPL mint layout: mint_authority COption<Pubkey>(36) | supply u64(8) | decimals u8(1) | is_initialized(1) | freeze_authority(36).
const (
	mintAccountSize    = 82
	mintDecimalsOffset = 44
	mintInitOffset     = 45
)

// ParseMintDecimals parses base64 SPL mint account data and returns its decimals.
func ParseMintDecimals(data string) (uint8, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < mintAccountSize {
		return 0, fmt.Errorf("mint data too short: %d", len(decoded))
	}
	if decoded[mintInitOffset] != 1 {
		return 0, fmt.Errorf("mint is not initialized")
	}
	return decoded[mintDecimalsOffset], nil
}
