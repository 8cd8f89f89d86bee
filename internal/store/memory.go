package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and development mode.
// The mutex only guards map access; like the real backend, there is no
// atomicity across calls, so the engine's re-check discipline is exercised
// the same way against both implementations.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]Row
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[string]Row)}
}

func (s *MemoryStore) FindRows(ctx context.Context, table string, pred Predicate) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Row
	for _, row := range s.tables[table] {
		if pred == nil || pred(row) {
			result = append(result, row.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore) AppendRow(ctx context.Context, table string, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]Row)
		s.tables[table] = rows
	}

	id := row.ID()
	if _, exists := rows[id]; exists {
		return ErrConflict
	}
	rows[id] = row.Clone()
	return nil
}

func (s *MemoryStore) UpdateRow(ctx context.Context, table string, id string, fields Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.tables[table][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
