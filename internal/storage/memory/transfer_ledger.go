package memory

import (
	"context"
	"sort"
	"sync"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/storage"
)

// TransferLedger is an in-memory implementation of storage.TransferLedger.
type TransferLedger struct {
	mu    sync.RWMutex
	data  map[string]*domain.TransferRecord // keyed by id
	order []string                          // insertion order
}

// NewTransferLedger creates a new in-memory transfer ledger.
func NewTransferLedger() *TransferLedger {
	return &TransferLedger{
		data: make(map[string]*domain.TransferRecord),
	}
}

// Compile-time interface check.
var _ storage.TransferLedger = (*TransferLedger)(nil)

// Insert adds a new transfer record. Returns ErrDuplicateKey if id exists.
func (s *TransferLedger) Insert(_ context.Context, t *domain.TransferRecord) error {
	if t == nil || t.ID == "" || t.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.ID] = copyRecord(t)
	s.order = append(s.order, t.ID)
	return nil
}

// GetSuccessful retrieves the earliest successful transfer to address under idempotencyKey.
func (s *TransferLedger) GetSuccessful(_ context.Context, idempotencyKey, address string) (*domain.TransferRecord, error) {
	if idempotencyKey == "" {
		return nil, storage.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		t := s.data[id]
		if t.IdempotencyKey == nil || *t.IdempotencyKey != idempotencyKey {
			continue
		}
		if t.Address == address && t.Status == domain.TransferStatusSuccess {
			return copyRecord(t), nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetByRunID retrieves all transfers of a run, ordered by recipient_index ASC.
func (s *TransferLedger) GetByRunID(_ context.Context, runID string) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterByRun(s.data, runID), nil
}

func filterByRun(data map[string]*domain.TransferRecord, runID string) []*domain.TransferRecord {
	var result []*domain.TransferRecord
	for _, t := range data {
		if t.RunID == runID {
			result = append(result, copyRecord(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RecipientIndex < result[j].RecipientIndex
	})

	return result
}

func copyRecord(t *domain.TransferRecord) *domain.TransferRecord {
	c := *t
	c.IdempotencyKey = copyString(t.IdempotencyKey)
	c.Signature = copyString(t.Signature)
	c.FailureReason = copyString(t.FailureReason)
	return &c
}
