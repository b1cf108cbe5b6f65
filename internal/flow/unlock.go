package flow

import (
	"context"
	"sync"
)

// MemoryUnlockStore keeps unlock records in process memory.
type MemoryUnlockStore struct {
	mu   sync.RWMutex
	keys map[string]bool
}

func NewMemoryUnlockStore() *MemoryUnlockStore {
	return &MemoryUnlockStore{keys: make(map[string]bool)}
}

func (s *MemoryUnlockStore) Get(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[key], nil
}

func (s *MemoryUnlockStore) Set(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = true
	return nil
}

// lookupUnlocked reads the unlock record and fails open: any store error is
// reported and treated as "not yet reviewed".
func lookupUnlocked(ctx context.Context, store UnlockStore, runner *Runner, key string) bool {
	if store == nil || key == "" {
		return false
	}
	unlocked, err := store.Get(ctx, key)
	if err != nil {
		runner.Report("unlock_lookup", err)
		return false
	}
	return unlocked
}
