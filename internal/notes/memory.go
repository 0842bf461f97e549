package notes

import (
	"context"
	"sync"
	"time"

	"jarvis/internal/logging"
)

// MemoryStore keeps notes in process memory. Used when no database path is
// configured and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	notes  []Note
	nextID int64
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, n Note) (Note, error) {
	n, err := prepare(n)
	if err != nil {
		return Note{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n.ID = m.nextID
	m.nextID++
	n.CreatedAt = m.now()
	m.notes = append(m.notes, n)
	logging.Get(logging.CategoryNotes).Debug("memory store saved note %d", n.ID)
	return n, nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.sorted()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Search(_ context.Context, keyword string) ([]Note, error) {
	key := searchKey(keyword)
	if key == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Note
	for _, n := range m.sorted() {
		if matches(n, key) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, position int) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := m.sorted()
	if position < 1 || position > len(ordered) {
		return Note{}, ErrNotFound
	}
	target := ordered[position-1]
	for i, n := range m.notes {
		if n.ID == target.ID {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			break
		}
	}
	return target, nil
}

func (m *MemoryStore) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.notes)
	m.notes = nil
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }

// sorted returns a newest-first copy. Caller holds the lock.
func (m *MemoryStore) sorted() []Note {
	out := make([]Note, len(m.notes))
	copy(out, m.notes)
	sortNewestFirst(out)
	return out
}
