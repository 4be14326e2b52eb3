package airdrop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-airdrop/internal/chain"
	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/idhash"
	"solana-airdrop/internal/observability"
	"solana-airdrop/internal/storage"
)

var errInvalidAddress = errors.New("invalid address")

// DirectJob carries the run-wide inputs of a direct execution.
type DirectJob struct {
	Run           *domain.AirdropRun
	SenderAccount string // sender's token account for Run.Mint
	Decimals      uint8  // mint decimals
}

// DirectExecutor sends one TransferChecked per recipient, strictly in order,
// waiting for each confirmation before the next recipient. A failing
// recipient is recorded and never aborts the rest of the batch.
type DirectExecutor struct {
	chain   ChainClient
	ledger  storage.TransferLedger
	retry   RetryPolicy
	metrics *observability.Metrics
	log     *logrus.Entry
	now     func() time.Time
}

// Execute transfers to every recipient and splits the outcomes.
// Each outcome is written to the ledger as soon as it is known.
func (e *DirectExecutor) Execute(ctx context.Context, job DirectJob, recipients []domain.ValidatedRecipient) ([]domain.TransferOutcome, []domain.FailedTransfer) {
	successful := make([]domain.TransferOutcome, 0, len(recipients))
	var failed []domain.FailedTransfer

	for i, r := range recipients {
		log := e.log.WithFields(logrus.Fields{
			"run_id":  job.Run.ID,
			"address": r.Address,
			"index":   i,
		})

		start := time.Now()
		baseUnits, sig, err := e.transfer(ctx, job, r)
		e.metrics.RecordTransferLatency(time.Since(start))

		record := &domain.TransferRecord{
			ID:             idhash.ComputeTransferID(job.Run.ID, r.Address, i),
			RunID:          job.Run.ID,
			IdempotencyKey: job.Run.IdempotencyKey,
			RecipientIndex: i,
			Address:        r.Address,
			Amount:         r.Amount.String(),
			BaseUnits:      baseUnits,
			Mint:           job.Run.Mint,
			Method:         domain.MethodDirect,
			CreatedAt:      e.now().UnixMilli(),
		}
		if sig != "" {
			record.Signature = &sig
		}

		if err != nil {
			reason := err.Error()
			record.Status = domain.TransferStatusFailed
			record.FailureReason = &reason
			failed = append(failed, domain.FailedTransfer{Address: r.Address, Amount: r.Amount, Reason: reason})
			log.WithError(err).Warn("transfer failed")
		} else {
			record.Status = domain.TransferStatusSuccess
			successful = append(successful, domain.TransferOutcome{
				Address:   r.Address,
				Amount:    r.Amount,
				Success:   true,
				Signature: sig,
			})
			log.WithField("signature", sig).Info("transfer confirmed")
		}

		e.record(ctx, record, log)
	}

	return successful, failed
}

// transfer pays one recipient. A non-empty signature is returned whenever a
// transaction was submitted, even if it then failed to confirm.
func (e *DirectExecutor) transfer(ctx context.Context, job DirectJob, r domain.ValidatedRecipient) (uint64, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	if !e.chain.ValidateAddress(r.Address) {
		return 0, "", errInvalidAddress
	}
	baseUnits, err := domain.BaseUnits(r.Amount, job.Decimals)
	if err != nil {
		return 0, "", err
	}

	var sig string
	err = e.retry.Do(ctx, func() error {
		dest, err := e.chain.GetOrCreateTokenAccount(ctx, r.Address, job.Run.Mint)
		if err != nil {
			return fmt.Errorf("resolve token account: %w", err)
		}
		sig, err = e.chain.Transfer(ctx, chain.TransferParams{
			Source:      job.SenderAccount,
			Destination: dest,
			Mint:        job.Run.Mint,
			Amount:      baseUnits,
			Decimals:    job.Decimals,
		})
		if err != nil {
			return fmt.Errorf("submit transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return baseUnits, "", err
	}

	if err := e.chain.ConfirmTransaction(ctx, sig); err != nil {
		return baseUnits, sig, fmt.Errorf("confirm %s: %w", sig, err)
	}
	return baseUnits, sig, nil
}

func (e *DirectExecutor) record(ctx context.Context, record *domain.TransferRecord, log *logrus.Entry) {
	if e.ledger == nil {
		return
	}
	// The ledger write must land even if the request was cancelled mid-run.
	if err := e.ledger.Insert(context.WithoutCancel(ctx), record); err != nil {
		e.metrics.RecordDBWriteError("ledger", "insert")
		log.WithError(err).Error("record transfer")
	}
}
