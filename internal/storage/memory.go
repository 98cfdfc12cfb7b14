package storage

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/sitecraft/siteadmin/internal/gitstore"
)

// MemoryAssetStore keeps assets in process memory.
type MemoryAssetStore struct {
	mu      sync.RWMutex
	files   map[string][]byte
	baseURL string
}

func NewMemoryAssetStore(baseURL string) *MemoryAssetStore {
	return &MemoryAssetStore{files: map[string][]byte{}, baseURL: baseURL}
}

func (m *MemoryAssetStore) List(_ context.Context, dir string) ([]string, error) {
	prefix := strings.Trim(path.Clean("/"+dir), "/")
	if prefix != "" {
		prefix += "/"
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for p := range m.files {
		rest, ok := strings.CutPrefix(p, prefix)
		if ok && !strings.Contains(rest, "/") {
			out = append(out, rest)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryAssetStore) Stat(_ context.Context, p string) (string, error) {
	p, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[p]
	if !ok {
		return "", ErrNotFound
	}
	return gitstore.BlobSHA(data), nil
}

func (m *MemoryAssetStore) Put(_ context.Context, p string, data []byte, expectedSHA string) (string, error) {
	p, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.files[p]
	if err := checkSHA(exists, gitstore.BlobSHA(cur), expectedSHA); err != nil {
		return "", err
	}
	m.files[p] = append([]byte(nil), data...)
	return gitstore.BlobSHA(data), nil
}

func (m *MemoryAssetStore) URL(_ context.Context, p string) (string, error) {
	return joinURL(m.baseURL, p), nil
}
