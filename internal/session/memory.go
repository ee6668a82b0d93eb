package session

import (
	"context"
	"sync"
	"time"

	"github.com/park285/opening-query/internal/view"
)

type memEntry struct {
	snap    view.Snapshot
	expires time.Time
}

// MemoryStore is the in-process Store used when REDIS_URL is not set.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memEntry)}
}

func (m *MemoryStore) Save(ctx context.Context, snap view.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[snap.ID] = memEntry{snap: snap, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (view.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(id)
	if !ok {
		return view.Snapshot{}, ErrNotFound
	}
	e.expires = m.now().Add(m.ttl)
	m.entries[id] = e
	return e.snap, nil
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(id)
	return ok, nil
}

// live returns the unexpired entry for id, dropping it once expired.
// Callers hold m.mu.
func (m *MemoryStore) live(id string) (memEntry, bool) {
	e, ok := m.entries[id]
	if !ok {
		return memEntry{}, false
	}
	if m.now().After(e.expires) {
		delete(m.entries, id)
		return memEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
