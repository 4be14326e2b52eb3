package airdrop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/idhash"
	"solana-airdrop/internal/observability"
	"solana-airdrop/internal/storage"
	"solana-airdrop/internal/storage/memory"
)

// Options for creating Service.
type Options struct {
	// Required collaborators
	Chain  ChainClient
	Signer Signer
	Mint   string

	// Provider is required only for batches that reach DirectThreshold.
	Provider BulkTransferProvider

	// Stores default to in-memory implementations when nil.
	Runs    storage.RunStore
	Ledger  storage.TransferLedger
	Archive storage.OutcomeArchive // optional

	DirectThreshold int         // 0 means DefaultDirectThreshold
	Retry           RetryPolicy // zero value means NoRetry
	Metrics         *observability.Metrics
	Logger          *logrus.Entry

	// Test hooks
	Now   func() time.Time
	NewID func() string
}

// ProcessOptions are per-run options.
type ProcessOptions struct {
	// IdempotencyKey, when set, skips recipients already paid by an earlier
	// run with the same key. Without it nothing is deduplicated.
	IdempotencyKey string
}

// Service runs airdrops: it picks the transfer strategy by batch size,
// executes it and records the run in the ledger.
type Service struct {
	chain     ChainClient
	signer    Signer
	mint      string
	threshold int

	runs    storage.RunStore
	ledger  storage.TransferLedger
	archive storage.OutcomeArchive

	direct     *DirectExecutor
	aggregated *AggregatedExecutor

	metrics *observability.Metrics
	log     *logrus.Entry
	now     func() time.Time
	newID   func() string
}

// NewService creates a new Service.
func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Chain == nil:
		return nil, fmt.Errorf("%w: chain client is required", ErrConfiguration)
	case opts.Signer == nil:
		return nil, fmt.Errorf("%w: wallet private key not configured", ErrConfiguration)
	case opts.Mint == "":
		return nil, fmt.Errorf("%w: token mint address not configured", ErrConfiguration)
	case opts.DirectThreshold < 0:
		return nil, fmt.Errorf("%w: direct threshold must not be negative", ErrConfiguration)
	}

	s := &Service{
		chain:     opts.Chain,
		signer:    opts.Signer,
		mint:      opts.Mint,
		threshold: opts.DirectThreshold,
		runs:      opts.Runs,
		ledger:    opts.Ledger,
		archive:   opts.Archive,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.threshold == 0 {
		s.threshold = DefaultDirectThreshold
	}
	if s.runs == nil {
		s.runs = memory.NewRunStore()
	}
	if s.ledger == nil {
		s.ledger = memory.NewTransferLedger()
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	retryPolicy := opts.Retry
	if retryPolicy.Attempts == 0 {
		retryPolicy = NoRetry
	}

	s.direct = &DirectExecutor{
		chain:   s.chain,
		ledger:  s.ledger,
		retry:   retryPolicy,
		metrics: s.metrics,
		log:     s.log.WithField("method", domain.MethodDirect),
		now:     s.now,
	}
	s.aggregated = &AggregatedExecutor{
		provider: opts.Provider,
		signer:   s.signer,
		log:      s.log.WithField("method", domain.MethodAggregated),
	}

	return s, nil
}

// Mint returns the token mint the service distributes.
func (s *Service) Mint() string {
	return s.mint
}

// SelectMethod returns the strategy for a batch of n recipients.
// Batches below the threshold go direct; the threshold itself is aggregated.
func (s *Service) SelectMethod(n int) domain.Method {
	if n < s.threshold {
		return domain.MethodDirect
	}
	return domain.MethodAggregated
}

// ProcessAirdrop distributes tokens to recipients.
// Per-recipient failures on the direct path are reported in the result.
// Setup and aggregated failures abort the run with ErrAirdropFailed.
func (s *Service) ProcessAirdrop(ctx context.Context, recipients []domain.ValidatedRecipient, opts ProcessOptions) (*domain.AirdropResult, error) {
	if len(recipients) == 0 {
		return nil, ErrEmptyBatch
	}

	skipped, pending, err := s.partitionPaid(ctx, opts.IdempotencyKey, recipients)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAirdropFailed, err)
	}

	run := &domain.AirdropRun{
		ID:             s.newID(),
		Method:         s.SelectMethod(len(pending)),
		Mint:           s.mint,
		RecipientCount: len(recipients),
		Status:         domain.RunStatusRunning,
		StartedAt:      s.now().UnixMilli(),
	}
	if opts.IdempotencyKey != "" {
		key := opts.IdempotencyKey
		run.IdempotencyKey = &key
	}

	log := s.log.WithFields(logrus.Fields{
		"run_id": run.ID,
		"method": run.Method,
	})
	log.WithFields(logrus.Fields{
		"recipients": len(recipients),
		"skipped":    len(skipped),
	}).Info("starting airdrop")

	if err := s.runs.Insert(ctx, run); err != nil {
		s.metrics.RecordDBWriteError("runs", "insert")
		log.WithError(err).Error("record run start")
	}

	result := &domain.AirdropResult{
		ID:         run.ID,
		Successful: skipped,
		Failed:     []domain.FailedTransfer{},
		Method:     run.Method,
	}
	if len(pending) == 0 {
		s.finish(ctx, run, result, nil, log)
		return result, nil
	}

	// Resolve the sender's token account once for the whole run.
	senderAccount, err := s.chain.GetOrCreateTokenAccount(ctx, s.signer.PublicKey(), s.mint)
	if err != nil {
		err = fmt.Errorf("%w: resolve sender token account: %w", ErrAirdropFailed, err)
		s.finish(ctx, run, nil, err, log)
		return nil, err
	}

	switch run.Method {
	case domain.MethodDirect:
		decimals, err := s.chain.MintDecimals(ctx, s.mint)
		if err != nil {
			err = fmt.Errorf("%w: read mint decimals: %w", ErrAirdropFailed, err)
			s.finish(ctx, run, nil, err, log)
			return nil, err
		}
		successful, failed := s.direct.Execute(ctx, DirectJob{
			Run:           run,
			SenderAccount: senderAccount,
			Decimals:      decimals,
		}, pending)
		result.Successful = append(result.Successful, successful...)
		result.Failed = append(result.Failed, failed...)

	case domain.MethodAggregated:
		successful, ref, err := s.aggregated.Execute(ctx, s.mint, pending)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrAirdropFailed, err)
			s.finish(ctx, run, nil, err, log)
			return nil, err
		}
		result.Successful = append(result.Successful, successful...)
		result.AggregateTxRef = ref
		s.recordAggregated(ctx, run, pending, ref, log)
	}

	s.finish(ctx, run, result, nil, log)
	return result, nil
}

// partitionPaid splits recipients into ones already paid under key and the rest.
func (s *Service) partitionPaid(ctx context.Context, key string, recipients []domain.ValidatedRecipient) ([]domain.TransferOutcome, []domain.ValidatedRecipient, error) {
	skipped := []domain.TransferOutcome{}
	if key == "" {
		return skipped, recipients, nil
	}

	pending := make([]domain.ValidatedRecipient, 0, len(recipients))
	for _, r := range recipients {
		prior, err := s.ledger.GetSuccessful(ctx, key, r.Address)
		if errors.Is(err, storage.ErrNotFound) {
			pending = append(pending, r)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("check ledger for %s: %w", r.Address, err)
		}

		outcome := domain.TransferOutcome{
			Address:          r.Address,
			Amount:           r.Amount,
			Success:          true,
			AlreadyProcessed: true,
		}
		if prior.Signature != nil {
			outcome.Signature = *prior.Signature
		}
		skipped = append(skipped, outcome)
		s.metrics.RecordSkipped()
	}
	return skipped, pending, nil
}

// recordAggregated writes one ledger row per recipient of a successful bulk call.
func (s *Service) recordAggregated(ctx context.Context, run *domain.AirdropRun, recipients []domain.ValidatedRecipient, ref string, log *logrus.Entry) {
	ctx = context.WithoutCancel(ctx)
	now := s.now().UnixMilli()
	for i, r := range recipients {
		sig := ref
		record := &domain.TransferRecord{
			ID:             idhash.ComputeTransferID(run.ID, r.Address, i),
			RunID:          run.ID,
			IdempotencyKey: run.IdempotencyKey,
			RecipientIndex: i,
			Address:        r.Address,
			Amount:         r.Amount.String(),
			Mint:           run.Mint,
			Method:         domain.MethodAggregated,
			Status:         domain.TransferStatusSuccess,
			Signature:      &sig,
			CreatedAt:      now,
		}
		if err := s.ledger.Insert(ctx, record); err != nil {
			s.metrics.RecordDBWriteError("ledger", "insert")
			log.WithError(err).WithField("address", r.Address).Error("record transfer")
		}
	}
}

// finish closes the run record, archives its outcomes and records metrics.
// Storage failures are logged and never change the airdrop result.
func (s *Service) finish(ctx context.Context, run *domain.AirdropRun, result *domain.AirdropResult, runErr error, log *logrus.Entry) {
	ctx = context.WithoutCancel(ctx)
	finished := s.now().UnixMilli()
	run.FinishedAt = &finished

	if runErr != nil {
		msg := runErr.Error()
		run.Status = domain.RunStatusFailed
		run.Error = &msg
		run.FailedCount = run.RecipientCount
		log.WithError(runErr).Error("airdrop failed")
	} else {
		run.Status = domain.RunStatusCompleted
		run.SuccessCount = len(result.Successful)
		run.FailedCount = len(result.Failed)
		if result.AggregateTxRef != "" {
			ref := result.AggregateTxRef
			run.AggregateTxRef = &ref
		}
		log.WithFields(logrus.Fields{
			"successful": run.SuccessCount,
			"failed":     run.FailedCount,
		}).Info("airdrop finished")
	}

	if err := s.runs.Finish(ctx, run); err != nil {
		s.metrics.RecordDBWriteError("runs", "finish")
		log.WithError(err).Error("record run finish")
	}

	method := run.Method.String()
	s.metrics.RecordRun(method, string(run.Status), run.RecipientCount, time.Duration(finished-run.StartedAt)*time.Millisecond)
	if result != nil {
		s.metrics.RecordTransfers(method, string(domain.TransferStatusSuccess), len(result.Successful))
		s.metrics.RecordTransfers(method, string(domain.TransferStatusFailed), len(result.Failed))
	}

	s.archiveRun(ctx, run, log)
}

func (s *Service) archiveRun(ctx context.Context, run *domain.AirdropRun, log *logrus.Entry) {
	if s.archive == nil {
		return
	}
	records, err := s.ledger.GetByRunID(ctx, run.ID)
	if err != nil {
		log.WithError(err).Error("load transfers for archive")
		return
	}
	if err := s.archive.InsertBulk(ctx, records); err != nil {
		s.metrics.RecordDBWriteError("archive", "insert_bulk")
		log.WithError(err).Error("archive transfers")
	}
}

// GetRun returns a recorded run. Returns storage.ErrNotFound if unknown.
func (s *Service) GetRun(ctx context.Context, id string) (*domain.AirdropRun, error) {
	return s.runs.GetByID(ctx, id)
}

// ListTransfers returns the ledger rows of a run, in execution order.
func (s *Service) ListTransfers(ctx context.Context, runID string) ([]*domain.TransferRecord, error) {
	return s.ledger.GetByRunID(ctx, runID)
}
