// internal/app/system/rendercache/memory.go
package rendercache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds the store returned by NewMemoryStore.
const DefaultMemoryEntries = 5000

// MemoryStore keeps entries in process. It is the default backend and the
// one used by tests. When full it evicts the least recently used entry.
type MemoryStore struct {
	mu      sync.Mutex
	entries *lru.Cache[string, Entry]
	tags    map[string]map[string]struct{}
	gen     uint64
}

func NewMemoryStore() *MemoryStore {
	return NewBoundedMemoryStore(DefaultMemoryEntries)
}

// NewBoundedMemoryStore keeps at most max entries.
func NewBoundedMemoryStore(max int) *MemoryStore {
	if max < 1 {
		max = DefaultMemoryEntries
	}
	m := &MemoryStore{tags: make(map[string]map[string]struct{})}
	m.entries, _ = lru.NewWithEvict[string, Entry](max, m.unindex)
	return m
}

// unindex removes key from its tag sets. The cache calls it synchronously
// for every eviction and removal, always with m.mu held.
func (m *MemoryStore) unindex(key string, e Entry) {
	for _, tag := range e.Tags {
		set, ok := m.tags[tag]
		if !ok {
			continue
		}
		delete(set, key)
		if len(set) == 0 {
			delete(m.tags, tag)
		}
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.entries.Get(key)
	return e, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, e)
	return nil
}

func (m *MemoryStore) set(key string, e Entry) {
	m.entries.Add(key, e)
	for _, tag := range e.Tags {
		set, ok := m.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			m.tags[tag] = set
		}
		set[key] = struct{}{}
	}
}

func (m *MemoryStore) Generation(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen, nil
}

func (m *MemoryStore) SetIfUnchanged(_ context.Context, key string, e Entry, gen uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false, nil
	}
	m.set(key, e)
	return true, nil
}

func (m *MemoryStore) InvalidateTag(_ context.Context, tag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	n := 0
	for key := range m.tags[tag] {
		if m.entries.Remove(key) {
			n++
		}
	}
	delete(m.tags, tag)
	return n, nil
}

// Len reports the number of stored entries.
func (m *MemoryStore) Len() int {
	return m.entries.Len()
}

// Sweep removes ttl entries older than their ttl and drops tag sets that
// no longer point at a stored entry. Get never evicts by age, so a
// long-running process calls Sweep periodically.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, key := range m.entries.Keys() {
		e, ok := m.entries.Peek(key)
		if ok && e.Policy.Kind == KindTTL && !e.Policy.Fresh(e.RenderedAt, now) {
			m.entries.Remove(key)
			n++
		}
	}
	for tag, set := range m.tags {
		for key := range set {
			if !m.entries.Contains(key) {
				delete(set, key)
			}
		}
		if len(set) == 0 {
			delete(m.tags, tag)
		}
	}
	return n
}
