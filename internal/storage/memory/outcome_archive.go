package memory

import (
	"context"
	"sync"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/storage"
)

// OutcomeArchive is an in-memory implementation of storage.OutcomeArchive.
type OutcomeArchive struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferRecord // keyed by id
}

// NewOutcomeArchive creates a new in-memory outcome archive.
func NewOutcomeArchive() *OutcomeArchive {
	return &OutcomeArchive{
		data: make(map[string]*domain.TransferRecord),
	}
}

// Compile-time interface check.
var _ storage.OutcomeArchive = (*OutcomeArchive)(nil)

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *OutcomeArchive) InsertBulk(_ context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(records))

	for _, t := range records {
		if t == nil || t.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.ID] = struct{}{}
	}

	for _, t := range records {
		s.data[t.ID] = copyRecord(t)
	}

	return nil
}

// GetByRunID retrieves archived outcomes of a run, ordered by recipient_index ASC.
func (s *OutcomeArchive) GetByRunID(_ context.Context, runID string) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterByRun(s.data, runID), nil
}
