package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/storage"
)

// OutcomeArchive implements storage.OutcomeArchive using ClickHouse.
type OutcomeArchive struct {
	conn *Conn
}

// NewOutcomeArchive creates a new OutcomeArchive.
func NewOutcomeArchive(conn *Conn) *OutcomeArchive {
	return &OutcomeArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.OutcomeArchive = (*OutcomeArchive)(nil)

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *OutcomeArchive) InsertBulk(ctx context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(records))
	for _, t := range records {
		if t == nil || t.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t.ID] = struct{}{}
	}

	// ReplacingMergeTree would silently collapse duplicates; keep append-only semantics.
	for _, t := range records {
		exists, err := s.exists(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_outcomes (
			id, run_id, idempotency_key, recipient_index, address,
			amount, base_units, mint, method, status,
			signature, failure_reason, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range records {
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return fmt.Errorf("%w: amount %q: %v", storage.ErrInvalidInput, t.Amount, err)
		}
		err = batch.Append(
			t.ID, t.RunID, t.IdempotencyKey, uint32(t.RecipientIndex), t.Address,
			amount, t.BaseUnits, t.Mint, string(t.Method), string(t.Status),
			t.Signature, t.FailureReason, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves archived outcomes of a run, ordered by recipient_index ASC.
func (s *OutcomeArchive) GetByRunID(ctx context.Context, runID string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT
			id, run_id, idempotency_key, recipient_index, address,
			amount, base_units, mint, method, status,
			signature, failure_reason, created_at
		FROM transfer_outcomes FINAL
		WHERE run_id = ?
		ORDER BY recipient_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

// exists checks if an outcome with the given id exists.
func (s *OutcomeArchive) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM transfer_outcomes WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanOutcomes(rows driver.Rows) ([]*domain.TransferRecord, error) {
	var result []*domain.TransferRecord
	for rows.Next() {
		var t domain.TransferRecord
		var recipientIndex uint32
		var amount decimal.Decimal
		var method, status string

		err := rows.Scan(
			&t.ID, &t.RunID, &t.IdempotencyKey, &recipientIndex, &t.Address,
			&amount, &t.BaseUnits, &t.Mint, &method, &status,
			&t.Signature, &t.FailureReason, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer outcome: %w", err)
		}

		t.RecipientIndex = int(recipientIndex)
		t.Amount = amount.String()
		t.Method = domain.Method(method)
		t.Status = domain.TransferStatus(status)
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
