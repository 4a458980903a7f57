package submission

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store keeps one State per session. Update must apply fn atomically with
// respect to other Update calls for the same id; fn may run more than once.
// A session that was never written loads as NewState().
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Update(ctx context.Context, id string, fn func(State) (State, bool)) (State, bool, error)
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is a process-local Store. Entries expire ttl after their last write.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns the session's state.
func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	if strings.TrimSpace(id) == "" {
		return State{}, ErrMissingSessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id), nil
}

// Update applies fn under the store lock.
func (m *MemoryStore) Update(_ context.Context, id string, fn func(State) (State, bool)) (State, bool, error) {
	if strings.TrimSpace(id) == "" {
		return State{}, false, ErrMissingSessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.getLocked(id)
	next, changed := fn(current)
	if !changed {
		return current, false, nil
	}
	entry := memoryEntry{state: next}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.entries[id] = entry
	return next, true, nil
}

func (m *MemoryStore) getLocked(id string) State {
	entry, ok := m.entries[id]
	if !ok {
		return NewState()
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		delete(m.entries, id)
		return NewState()
	}
	return entry.state
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, entry := range m.entries {
		if !entry.expires.IsZero() && now.After(entry.expires) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
