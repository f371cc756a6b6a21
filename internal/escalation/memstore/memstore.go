// Package memstore provides an in-memory implementation of escalation.Store
// with a JSON snapshot hook for durability across restarts.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/collecokzn-creator/colleco-mvp-sub008/internal/escalation"
)

// Store holds escalation records in memory. Suitable for dev/testing and
// for single-node deployments paired with the snapshot hook.
type Store struct {
	mu      sync.RWMutex
	records map[string]*escalation.Escalation // escalation ID -> record
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		records: make(map[string]*escalation.Escalation),
	}
}

// Get retrieves an escalation by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*escalation.Escalation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	return e.Clone(), true, nil
}

// Put stores a copy of the escalation. The whole record, logs included,
// lands under one lock so readers never see a half-applied mutation.
func (s *Store) Put(_ context.Context, e *escalation.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[e.ID] = e.Clone()
	return nil
}

// List returns a consistent snapshot of all escalations, ordered by
// creation time then ID for stable output.
func (s *Store) List(_ context.Context) ([]*escalation.Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*escalation.Escalation, 0, len(s.records))
	for _, e := range s.records {
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b *escalation.Escalation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// WriteSnapshot serializes the full escalation set, transition logs
// included, as a JSON array.
func (s *Store) WriteSnapshot(w io.Writer) error {
	all, _ := s.List(context.Background())
	if err := json.NewEncoder(w).Encode(all); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot rehydrates the store from a snapshot written by
// WriteSnapshot, replacing current contents. Query results after a
// round trip are identical to those before it.
func (s *Store) ReadSnapshot(r io.Reader) error {
	var all []*escalation.Escalation
	if err := json.NewDecoder(r).Decode(&all); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*escalation.Escalation, len(all))
	for _, e := range all {
		s.records[e.ID] = e
	}
	return nil
}
