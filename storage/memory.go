package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

const memoryURLScheme = "mem://"

// MemoryStore is a map-backed BlobStore. It backs the memory storage mode
// and the test suites.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// List enumerates every stored object in pathname order.
func (s *MemoryStore) List(ctx context.Context) ([]BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]BlobInfo, 0, len(s.blobs))
	for pathname := range s.blobs {
		infos = append(infos, BlobInfo{
			Pathname: pathname,
			URL:      memoryURLScheme + pathname,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Pathname < infos[j].Pathname })
	return infos, nil
}

// Fetch returns the object bytes for a URL produced by List.
func (s *MemoryStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pathname := strings.TrimPrefix(url, memoryURLScheme)
	data, ok := s.blobs[pathname]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put overwrites the object at pathname.
func (s *MemoryStore) Put(ctx context.Context, pathname string, data []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[pathname] = stored
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
