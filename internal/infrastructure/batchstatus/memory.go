package batchstatus

import (
	"context"
	"sync"
	"time"

	"media-portfolio-api/internal/domain/upload"
)

type memoryEntry struct {
	status  *upload.BatchStatus
	expires time.Time
}

// Memory keeps snapshots in process. Used when Redis is not configured;
// statuses then do not survive a restart and are not shared between replicas.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) SaveBatchStatus(_ context.Context, status *upload.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evict(now)
	m.entries[status.ID] = memoryEntry{status: status.Clone(), expires: now.Add(m.ttl)}

	return nil
}

func (m *Memory) FetchBatchStatus(_ context.Context, batchID string) (*upload.BatchStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[batchID]
	if !ok || (m.ttl > 0 && m.now().After(e.expires)) {
		return nil, nil
	}

	return e.status.Clone(), nil
}

// must hold m.mu
func (m *Memory) evict(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
}
