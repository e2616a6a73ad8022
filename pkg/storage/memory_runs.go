package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/polisai/polis-flow/pkg/domain"
)

// MemoryRunStore is an in-memory implementation of RunStore. Snapshots are
// stored encoded so later pool writes can never alias an archived run.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewMemoryRunStore creates an empty run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs: make(map[string][]byte),
	}
}

// SaveRun stores state and returns the generated run id.
func (s *MemoryRunStore) SaveRun(_ context.Context, state domain.VariablePoolState) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode run state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.runs[id] = data
	return id, nil
}

// LoadRun returns the archived state of a run.
func (s *MemoryRunStore) LoadRun(_ context.Context, runID string) (domain.VariablePoolState, error) {
	s.mu.RLock()
	data, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return domain.VariablePoolState{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	var state domain.VariablePoolState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.VariablePoolState{}, fmt.Errorf("decode run state: %w", err)
	}
	return state, nil
}
