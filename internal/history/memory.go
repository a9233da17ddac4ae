package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the most recent records in a fixed-size ring
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	next    int
	full    bool
}

// NewMemoryStore creates a ring holding up to capacity records
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryStore{records: make([]Record, capacity)}
}

// Save implements Store
func (m *MemoryStore) Save(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[m.next] = *r
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// ordered returns stored records newest first; callers hold the lock
func (m *MemoryStore) ordered() []Record {
	n := m.next
	if m.full {
		n = len(m.records)
	}
	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.records)) % len(m.records)
		out = append(out, m.records[idx])
	}
	return out
}

// Recent implements Store
func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.ordered()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats implements Store
func (m *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := newStats()
	var sum float64
	for _, r := range m.ordered() {
		stats.add(&r, &sum)
	}
	return stats.finish(sum), nil
}

// Prune implements Store
func (m *MemoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []Record
	var removed int64
	for _, r := range m.ordered() {
		if r.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed == 0 {
		return 0, nil
	}

	capacity := len(m.records)
	m.records = make([]Record, capacity)
	m.next, m.full = 0, false
	for i := len(kept) - 1; i >= 0; i-- {
		m.records[m.next] = kept[i]
		m.next++
	}
	if m.next == capacity {
		m.next, m.full = 0, true
	}
	return removed, nil
}

// Close implements Store
func (m *MemoryStore) Close() error { return nil }
