package session

import (
	"context"
	"sync"
	"time"

	"github.com/kleurijkwonen/inspections/wizard"
)

type memoryEntry struct {
	snap    wizard.Snapshot
	expires time.Time
}

// minSweepSize is the entry count at which Save first drops expired sessions.
const minSweepSize = 1024

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	sweepAt int
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		sweepAt: minSweepSize,
	}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (wizard.Snapshot, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expires) {
		return wizard.Snapshot{}, ErrNotFound
	}
	return e.snap, nil
}

func (s *MemoryStore) Save(ctx context.Context, id string, snap wizard.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.entries) >= s.sweepAt {
		s.sweep(now)
	}
	s.entries[id] = memoryEntry{snap: snap, expires: now.Add(s.ttl)}
	return nil
}

// sweep drops expired entries and moves the next sweep past twice the live
// count, so a store full of live sessions is not rescanned on every save.
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
	s.sweepAt = max(2*len(s.entries), minSweepSize)
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
