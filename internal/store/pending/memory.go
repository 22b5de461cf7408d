package pending

import (
	"context"
	"sync"

	"paybridge/internal/domain/flow"
)

// Memory is an in-process Store used by tests and single-run tooling.
type Memory struct {
	mu  sync.Mutex
	rec *flow.ResumeRecord
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Write(_ context.Context, rec flow.ResumeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &rec
	return nil
}

func (m *Memory) ReadAndClear(_ context.Context) (*flow.ResumeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.rec
	m.rec = nil
	return rec, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
