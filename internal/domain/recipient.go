package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RawAmount is an untrusted amount as supplied by the caller.
// It decodes from a JSON number, a JSON string or null so that a bad value
// surfaces as a per-recipient validation error instead of a body decode error.
type RawAmount string

// UnmarshalJSON accepts numbers, strings and null.
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
	default:
		// Numbers are kept verbatim; anything else is rejected by validation.
		*a = RawAmount(data)
	}
	return nil
}

// String returns the raw amount text.
func (a RawAmount) String() string {
	return string(a)
}

// RecipientRequest is one raw airdrop recipient from a JSON body or CSV row.
type RecipientRequest struct {
	Address string    `json:"address" csv:"address"`
	Amount  RawAmount `json:"amount" csv:"amount"`
}

// ValidatedRecipient is a recipient that passed address and amount validation.
// Amount is always > 0.
type ValidatedRecipient struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// BaseUnits converts a UI amount into token base units using the mint decimals.
// Returns an error if the amount has more fractional digits than the mint allows
// or does not fit into uint64.
func BaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s exceeds token precision of %d decimals", amount.String(), decimals)
	}
	if scaled.Sign() <= 0 {
		return 0, fmt.Errorf("amount %s must be positive", amount.String())
	}
	if scaled.GreaterThan(decimal.NewFromUint64(^uint64(0))) {
		return 0, fmt.Errorf("amount %s overflows token supply range", amount.String())
	}
	return scaled.BigInt().Uint64(), nil
}
