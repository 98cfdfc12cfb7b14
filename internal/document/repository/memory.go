package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sitecraft/siteadmin/internal/document"
	"github.com/sitecraft/siteadmin/internal/site"
)

// MemoryRepo keeps snapshots in process memory. It backs tests and the
// "memory" store backend.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[site.Kind]document.Snapshot
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[site.Kind]document.Snapshot)}
}

func (m *MemoryRepo) Get(_ context.Context, kind site.Kind) (document.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.store[kind]; ok {
		return s, nil
	}
	return document.Snapshot{}, ErrNotFound
}

func (m *MemoryRepo) Put(_ context.Context, kind site.Kind, data []byte, expectedSHA string) (document.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.store[kind]
	if err := checkSHA(exists, cur.SHA, expectedSHA); err != nil {
		return document.Snapshot{}, err
	}
	s := document.Snapshot{
		Kind:      kind,
		Data:      append([]byte(nil), data...),
		SHA:       document.ComputeSHA(data),
		UpdatedAt: time.Now().UTC(),
	}
	m.store[kind] = s
	return s, nil
}
