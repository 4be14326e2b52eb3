package memory

import (
	"context"
	"sync"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AirdropRun // keyed by id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.AirdropRun),
	}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.AirdropRun) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ID] = copyRun(r)
	return nil
}

// Finish records the final state of a run. Returns ErrNotFound if not exists.
func (s *RunStore) Finish(_ context.Context, r *domain.AirdropRun) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[r.ID]
	if !ok {
		return storage.ErrNotFound
	}

	updated := copyRun(existing)
	updated.Method = r.Method
	updated.SuccessCount = r.SuccessCount
	updated.FailedCount = r.FailedCount
	updated.AggregateTxRef = copyString(r.AggregateTxRef)
	updated.Status = r.Status
	updated.Error = copyString(r.Error)
	if r.FinishedAt != nil {
		v := *r.FinishedAt
		updated.FinishedAt = &v
	}
	s.data[r.ID] = updated
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, id string) (*domain.AirdropRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRun(r), nil
}

func copyRun(r *domain.AirdropRun) *domain.AirdropRun {
	c := *r
	c.IdempotencyKey = copyString(r.IdempotencyKey)
	c.AggregateTxRef = copyString(r.AggregateTxRef)
	c.Error = copyString(r.Error)
	if r.FinishedAt != nil {
		v := *r.FinishedAt
		c.FinishedAt = &v
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
