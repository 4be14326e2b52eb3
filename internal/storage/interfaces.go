package storage

import (
	"context"

	"solana-airdrop/internal/domain"
)

// RunStore provides access to airdrop_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.AirdropRun) error

	// Finish records the final counts, status and error of a run.
	// Returns ErrNotFound if the run does not exist.
	Finish(ctx context.Context, r *domain.AirdropRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.AirdropRun, error)
}

// TransferLedger provides access to airdrop_transfers storage.
type TransferLedger interface {
	// Insert adds a new transfer record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, t *domain.TransferRecord) error

	// GetSuccessful retrieves the earliest successful transfer to address recorded
	// under idempotencyKey. Returns ErrNotFound if none exists.
	GetSuccessful(ctx context.Context, idempotencyKey, address string) (*domain.TransferRecord, error)

	// GetByRunID retrieves all transfers of a run, ordered by recipient_index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TransferRecord, error)
}

// OutcomeArchive provides access to transfer_outcomes analytics storage.
type OutcomeArchive interface {
	// InsertBulk appends transfer outcomes. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.TransferRecord) error

	// GetByRunID retrieves archived outcomes of a run, ordered by recipient_index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TransferRecord, error)
}
