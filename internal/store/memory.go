package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemorySessionRepo is an in-process SessionRepo. It is the default for
// the terminal interview command and the backend most tests run against.
type MemorySessionRepo struct {
	mu      sync.Mutex
	records map[string]SessionRecord
}

// NewMemorySessionRepo creates an empty in-memory repository.
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{records: make(map[string]SessionRecord)}
}

func (m *MemorySessionRepo) Insert(_ context.Context, rec *SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return ErrExists
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Version = 1
	m.records[rec.ID] = cloneRecord(*rec)
	return nil
}

func (m *MemorySessionRepo) Get(_ context.Context, id string) (*SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (m *MemorySessionRepo) CompareAndSwap(_ context.Context, rec *SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != rec.Version {
		return ErrConflict
	}
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	rec.CreatedAt = cur.CreatedAt
	m.records[rec.ID] = cloneRecord(*rec)
	return nil
}

func (m *MemorySessionRepo) List(_ context.Context, filter ListFilter) ([]SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SessionRecord
	for _, rec := range m.records {
		if !filter.matches(rec) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f ListFilter) matches(rec SessionRecord) bool {
	if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
		return false
	}
	if f.ModuleID != "" && rec.ModuleID != f.ModuleID {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return true
}

func cloneRecord(rec SessionRecord) SessionRecord {
	rec.Data = append([]byte(nil), rec.Data...)
	return rec
}
