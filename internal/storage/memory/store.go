// Package memory is the in-memory backend, used by tests and for
// running the server without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"tally/internal/core"
	"tally/internal/storage"
)

// Store keeps all rows in process memory. Reads return copies so
// callers can never mutate stored state.
type Store struct {
	mu       sync.RWMutex
	rows     []core.Transaction
	byID     map[string]int
	vendors  map[string]string
	exported map[string]bool
}

func NewStore() *Store {
	return &Store{
		byID:     make(map[string]int),
		vendors:  make(map[string]string),
		exported: make(map[string]bool),
	}
}

func (s *Store) Insert(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[tx.ID]; ok {
		return &core.ValidationError{Field: "id", Reason: "already exists"}
	}
	s.byID[tx.ID] = len(s.rows)
	s.rows = append(s.rows, tx)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.rows[i], nil
}

func (s *Store) List(_ context.Context, f storage.Filter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(s.rows))
	for _, tx := range s.rows {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	// Newest first; insertion order breaks date ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, id, category string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	s.rows[i].Category = category
	return s.rows[i], nil
}

func (s *Store) UpdateType(_ context.Context, id string, typ core.TxType) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	s.rows[i].Type = typ
	s.rows[i].Amount.Cents = core.SignedCents(s.rows[i].Amount.Cents, typ)
	return s.rows[i], nil
}

func (s *Store) SetMapping(_ context.Context, vendor, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors[vendor] = category
	return nil
}

func (s *Store) Mappings(context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.vendors))
	for k, v := range s.vendors {
		out[k] = v
	}
	return out, nil
}

func (s *Store) ListUnexported(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, tx := range s.rows {
		if s.exported[tx.ID] {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return core.ErrNotFound
	}
	s.exported[id] = true
	return nil
}

func (s *Store) MarkExportError(_ context.Context, id string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return core.ErrNotFound
	}
	return nil
}
