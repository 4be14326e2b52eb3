package postgres

import (
	"context"
	"fmt"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.AirdropRun) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO airdrop_runs (
			id, idempotency_key, method, mint,
			recipient_count, success_count, failed_count,
			aggregate_tx_ref, status, error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.IdempotencyKey, string(r.Method), r.Mint,
		r.RecipientCount, r.SuccessCount, r.FailedCount,
		r.AggregateTxRef, string(r.Status), r.Error, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert airdrop run: %w", err)
	}
	return nil
}

// Finish records the final state of a run. Returns ErrNotFound if not exists.
func (s *RunStore) Finish(ctx context.Context, r *domain.AirdropRun) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE airdrop_runs SET
			method = $2,
			success_count = $3,
			failed_count = $4,
			aggregate_tx_ref = $5,
			status = $6,
			error = $7,
			finished_at = $8
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		r.ID, string(r.Method), r.SuccessCount, r.FailedCount,
		r.AggregateTxRef, string(r.Status), r.Error, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("finish airdrop run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, id string) (*domain.AirdropRun, error) {
	query := `
		SELECT
			id, idempotency_key, method, mint,
			recipient_count, success_count, failed_count,
			aggregate_tx_ref, status, error, started_at, finished_at
		FROM airdrop_runs
		WHERE id = $1
	`

	var r domain.AirdropRun
	var method, status string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.IdempotencyKey, &method, &r.Mint,
		&r.RecipientCount, &r.SuccessCount, &r.FailedCount,
		&r.AggregateTxRef, &status, &r.Error, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get airdrop run: %w", err)
	}

	r.Method = domain.Method(method)
	r.Status = domain.RunStatus(status)
	return &r, nil
}
