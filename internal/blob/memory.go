package blob

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string]Blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := newKey()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = Blob{Data: stored, Filename: filename, ContentType: contentType}
	return key, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.blobs[id]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return stored, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, id)
	return nil
}

// Len reports how many blobs are stored; tests use it to assert that failed
// ingestion leaves nothing behind.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
