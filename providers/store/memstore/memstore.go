// Package memstore is an in-memory content-addressed store for tests and demos.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/hengadev/medlock/internal/content"
	"github.com/hengadev/medlock/internal/types"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[types.ContentID][]byte
}

func New() *Store {
	return &Store{blobs: make(map[types.ContentID][]byte)}
}

func (s *Store) Put(ctx context.Context, data []byte) (types.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	id, err := content.Sum(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		s.blobs[id] = append([]byte(nil), data...)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id types.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: content %s", types.ErrNotFound, id)
	}
	if err := content.Verify(id, data); err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of distinct blobs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Corrupt overwrites the bytes stored under id without changing the key.
// Tests use it to exercise integrity checking.
func (s *Store) Corrupt(id types.ContentID, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = append([]byte(nil), data...)
}
