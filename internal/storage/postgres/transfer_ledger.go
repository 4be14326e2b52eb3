package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/storage"
)

// TransferLedger implements storage.TransferLedger using PostgreSQL.
type TransferLedger struct {
	pool *Pool
}

// NewTransferLedger creates a new TransferLedger.
func NewTransferLedger(pool *Pool) *TransferLedger {
	return &TransferLedger{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferLedger = (*TransferLedger)(nil)

const transferColumns = `
	id, run_id, idempotency_key, recipient_index, address,
	amount::text, base_units::text, mint, method, status,
	signature, failure_reason, created_at
`

// Insert adds a new transfer record. Returns ErrDuplicateKey if id exists.
func (s *TransferLedger) Insert(ctx context.Context, t *domain.TransferRecord) error {
	if t == nil || t.ID == "" || t.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO airdrop_transfers (
			id, run_id, idempotency_key, recipient_index, address,
			amount, base_units, mint, method, status,
			signature, failure_reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6::numeric, $7::numeric, $8, $9, $10,
			$11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.RunID, t.IdempotencyKey, t.RecipientIndex, t.Address,
		t.Amount, strconv.FormatUint(t.BaseUnits, 10), t.Mint, string(t.Method), string(t.Status),
		t.Signature, t.FailureReason, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// GetSuccessful retrieves the earliest successful transfer to address under idempotencyKey.
func (s *TransferLedger) GetSuccessful(ctx context.Context, idempotencyKey, address string) (*domain.TransferRecord, error) {
	if idempotencyKey == "" {
		return nil, storage.ErrNotFound
	}

	query := `
		SELECT ` + transferColumns + `
		FROM airdrop_transfers
		WHERE idempotency_key = $1 AND address = $2 AND status = $3
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, idempotencyKey, address, string(domain.TransferStatusSuccess))
	t, err := scanTransferRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get successful transfer: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all transfers of a run, ordered by recipient_index ASC.
func (s *TransferLedger) GetByRunID(ctx context.Context, runID string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM airdrop_transfers
		WHERE run_id = $1
		ORDER BY recipient_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query transfers by run: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransferRecord
	for rows.Next() {
		t, err := scanTransferRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return result, nil
}

func scanTransferRecord(row pgx.Row) (*domain.TransferRecord, error) {
	var t domain.TransferRecord
	var baseUnits, method, status string

	err := row.Scan(
		&t.ID, &t.RunID, &t.IdempotencyKey, &t.RecipientIndex, &t.Address,
		&t.Amount, &baseUnits, &t.Mint, &method, &status,
		&t.Signature, &t.FailureReason, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.BaseUnits, err = strconv.ParseUint(baseUnits, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse base_units %q: %w", baseUnits, err)
	}
	t.Method = domain.Method(method)
	t.Status = domain.TransferStatus(status)
	return &t, nil
}
