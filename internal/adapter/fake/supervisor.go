package fake

import (
	"context"
	"sync"

	"pgherd/internal/converge"
)

var _ converge.Supervisor = (*Supervisor)(nil)

// Supervisor is an in-memory implementation of converge.Supervisor.
type Supervisor struct {
	CallRecorder
	mu      sync.Mutex
	running bool

	StartErr  func(ctx context.Context) error
	ReloadErr func(ctx context.Context) error
}

// NewSupervisor creates a Supervisor whose service is stopped.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

func (s *Supervisor) Start(ctx context.Context) error {
	s.record("Start")
	if s.StartErr != nil {
		if err := s.StartErr(ctx); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
	return nil
}

func (s *Supervisor) Reload(ctx context.Context) error {
	s.record("Reload")
	if s.ReloadErr != nil {
		if err := s.ReloadErr(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) Running(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetRunning forces the reported service state.
func (s *Supervisor) SetRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}
