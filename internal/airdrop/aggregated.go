package airdrop

import (
	"context"

	"github.com/sirupsen/logrus"

	"solana-airdrop/internal/domain"
)

// AggregatedExecutor hands the whole batch to a bulk transfer provider.
// The call is all-or-nothing: one reference for every recipient or one error.
type AggregatedExecutor struct {
	provider BulkTransferProvider
	signer   Signer
	log      *logrus.Entry
}

// Execute submits recipients in one provider call.
func (e *AggregatedExecutor) Execute(ctx context.Context, mint string, recipients []domain.ValidatedRecipient) ([]domain.TransferOutcome, string, error) {
	if e.provider == nil {
		return nil, "", ErrProviderNotConfigured
	}

	ref, err := e.provider.Airdrop(ctx, domain.BulkTransferRequest{
		Mint:            mint,
		Recipients:      recipients,
		SenderSecretKey: e.signer.SecretKey(),
	})
	if err != nil {
		return nil, "", err
	}

	successful := make([]domain.TransferOutcome, len(recipients))
	for i, r := range recipients {
		successful[i] = domain.TransferOutcome{Address: r.Address, Amount: r.Amount, Success: true}
	}

	e.log.WithFields(logrus.Fields{
		"recipients": len(recipients),
		"reference":  ref,
	}).Info("aggregated airdrop submitted")

	return successful, ref, nil
}
