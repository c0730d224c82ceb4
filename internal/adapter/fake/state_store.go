package fake

import (
	"context"
	"sync"

	"pgherd/internal/converge"
)

var _ converge.StateStore = (*StateStore)(nil)

// StateStore is an in-memory implementation of converge.StateStore.
type StateStore struct {
	CallRecorder
	mu      sync.Mutex
	applied converge.AppliedConfig
	has     bool

	LastAppliedErr   func(ctx context.Context) error
	RecordAppliedErr func(ctx context.Context, applied converge.AppliedConfig) error
}

// NewStateStore creates a StateStore with nothing recorded.
func NewStateStore() *StateStore {
	return &StateStore{}
}

func (s *StateStore) LastApplied(ctx context.Context) (converge.AppliedConfig, bool, error) {
	s.record("LastApplied")
	if s.LastAppliedErr != nil {
		if err := s.LastAppliedErr(ctx); err != nil {
			return converge.AppliedConfig{}, false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied, s.has, nil
}

func (s *StateStore) RecordApplied(ctx context.Context, applied converge.AppliedConfig) error {
	s.record("RecordApplied", applied.Version)
	if s.RecordAppliedErr != nil {
		if err := s.RecordAppliedErr(ctx, applied); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applied = applied
	s.has = true
	return nil
}

// Seed installs a previously applied configuration.
func (s *StateStore) Seed(applied converge.AppliedConfig) {
	s.mu.Lock()
	s.applied = applied
	s.has = true
	s.mu.Unlock()
}
