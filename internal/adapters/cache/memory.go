package cache

import (
	"sync"

	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/pkg/metrics"
)

const defaultMemoryCapacity = 100

// lruEntry is a node in the recency list. head side is most recently
// used, tail side is next to evict.
type lruEntry struct {
	key   model.Key
	score model.Score
	prev  *lruEntry
	next  *lruEntry
}

// Memory is the bounded in-memory score tier. Lookups and publishes
// both refresh recency; when the capacity is exceeded the least
// recently used entry is dropped. Dropping is safe because the durable
// tier, and ultimately the raw samples, can always re-supply the value.
type Memory struct {
	mu        sync.Mutex
	capacity  int
	entries   map[model.Key]*lruEntry
	head      *lruEntry
	tail      *lruEntry
	evictions int64
}

// MemoryOption configures the in-memory tier.
type MemoryOption func(*Memory)

// WithCapacity bounds the number of retained entries. Values below one
// are ignored.
func WithCapacity(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// NewMemory creates an in-memory LRU score tier.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		capacity: defaultMemoryCapacity,
		entries:  make(map[model.Key]*lruEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached score for key and refreshes its recency.
func (m *Memory) Get(key model.Key) (model.Score, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return model.Score{}, false
	}
	m.moveToFront(e)
	return e.score, true
}

// Put stores a score for key, replacing any previous value.
func (m *Memory) Put(key model.Key, score model.Score) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.score = score
		m.moveToFront(e)
		return
	}

	e := &lruEntry{key: key, score: score}
	m.entries[key] = e
	m.pushFront(e)

	for len(m.entries) > m.capacity {
		m.evictTail()
	}
}

// Remove drops the entry for key if present.
func (m *Memory) Remove(key model.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return
	}
	m.unlink(e)
	delete(m.entries, key)
}

// Len returns the number of resident entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Evictions returns how many entries capacity pressure has dropped.
func (m *Memory) Evictions() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions
}

func (m *Memory) evictTail() {
	e := m.tail
	if e == nil {
		return
	}
	m.unlink(e)
	delete(m.entries, e.key)
	m.evictions++
	metrics.RecordCacheEviction()
}

func (m *Memory) pushFront(e *lruEntry) {
	e.prev = nil
	e.next = m.head
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
}

func (m *Memory) moveToFront(e *lruEntry) {
	if m.head == e {
		return
	}
	m.unlink(e)
	m.pushFront(e)
}

func (m *Memory) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		m.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}
