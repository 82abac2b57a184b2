package jobs

import (
	"context"
	"sync"

	"fieldday/internal/services/dispatch/domain"
)

// MemQueue is an in-process FIFO queue satisfying domain.QueuePort.
// Claimed jobs are held aside until Complete; there is no visibility timeout,
// so a crashed in-memory worker loses its claim with the process, which is
// fine for the tests and one-shot CLI runs this backs.
type MemQueue struct {
	mu      sync.Mutex
	nextID  int64
	pending []domain.Job
	claimed map[int64]domain.Job
}

// NewMemQueue returns an empty in-memory queue
func NewMemQueue() *MemQueue {
	return &MemQueue{claimed: make(map[int64]domain.Job)}
}

var _ domain.QueuePort = (*MemQueue)(nil)

// Enqueue implements domain.QueuePort
func (m *MemQueue) Enqueue(_ context.Context, kind string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.pending = append(m.pending, domain.Job{ID: m.nextID, Kind: kind, Payload: cp})
	return nil
}

// Dequeue implements domain.QueuePort
func (m *MemQueue) Dequeue(_ context.Context) (domain.Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return domain.Job{}, false, nil
	}
	j := m.pending[0]
	m.pending = m.pending[1:]
	m.claimed[j.ID] = j
	return j, true, nil
}

// Complete implements domain.QueuePort
func (m *MemQueue) Complete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, id)
	return nil
}

// Len reports how many jobs are pending (not claimed)
func (m *MemQueue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Claimed reports how many jobs are claimed but not yet completed
func (m *MemQueue) Claimed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claimed)
}
