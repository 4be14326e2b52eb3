package airdrop

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/solana"
)

// ValidateRecipients partitions raw recipients into valid ones and one error
// message per rejected item. Valid recipients keep their input order.
// It fails only with ErrEmptyBatch.
func ValidateRecipients(raw []domain.RecipientRequest) ([]domain.ValidatedRecipient, []string, error) {
	if len(raw) == 0 {
		return nil, nil, ErrEmptyBatch
	}

	valid := make([]domain.ValidatedRecipient, 0, len(raw))
	var errs []string

	for i, r := range raw {
		address := strings.TrimSpace(r.Address)
		rawAmount := strings.TrimSpace(r.Amount.String())

		if address == "" || rawAmount == "" {
			errs = append(errs, fmt.Sprintf("recipient at index %d missing address or amount", i))
			continue
		}
		if !solana.IsValidAddress(address) {
			errs = append(errs, fmt.Sprintf("invalid Solana address at index %d: %s", i, r.Address))
			continue
		}
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil || !amount.IsPositive() {
			errs = append(errs, fmt.Sprintf("invalid amount at index %d: %s", i, r.Amount))
			continue
		}

		valid = append(valid, domain.ValidatedRecipient{Address: address, Amount: amount})
	}

	return valid, errs, nil
}
