package program

import (
	"context"
	"fmt"
	"sync"

	"github.com/hengadev/medlock/internal/types"
)

// MutateFunc computes the new account data from the current one. exists is false
// when the account has never been written. Returning an error aborts the write.
type MutateFunc func(cur []byte, exists bool) ([]byte, error)

// AccountStore persists account data by address. Mutate must run fn and apply its
// result atomically with respect to other writers of the same address.
type AccountStore interface {
	Get(ctx context.Context, addr types.Address) ([]byte, error)
	Mutate(ctx context.Context, addr types.Address, fn MutateFunc) (slot uint64, err error)
}

type memoryEntry struct {
	data []byte
	slot uint64
}

// MemoryStore is an AccountStore held in a map.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[types.Address]memoryEntry
	slot     uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[types.Address]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, addr types.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrLedgerUnavailable, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", types.ErrNotFound, addr)
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (s *MemoryStore) Mutate(ctx context.Context, addr types.Address, fn MutateFunc) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrLedgerUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.accounts[addr]
	next, err := fn(e.data, ok)
	if err != nil {
		return 0, err
	}
	s.slot++
	stored := make([]byte, len(next))
	copy(stored, next)
	s.accounts[addr] = memoryEntry{data: stored, slot: s.slot}
	return s.slot, nil
}

// Len returns the number of accounts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
