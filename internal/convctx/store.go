// Package convctx keeps the per-sender conversation context: the last text
// the assistant understood from each sender and where it came from.
package convctx

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"jarvis/internal/logging"
)

// Origin records how the last understood text arrived.
type Origin int

const (
	OriginNone Origin = iota
	OriginText
	OriginAudio
)

func (o Origin) String() string {
	switch o {
	case OriginText:
		return "TEXT"
	case OriginAudio:
		return "AUDIO"
	default:
		return "NONE"
	}
}

// Context is a snapshot of one sender's conversation state.
type Context struct {
	Sender     string
	LastText   string
	LastIntent Origin
	UpdatedAt  time.Time
}

// HasText reports whether there is something to act on.
func (c Context) HasText() bool {
	return c.LastText != ""
}

type entry struct {
	ctx     Context
	touched time.Time
}

// Store is a bounded, concurrency-safe map from sender to Context.
// Least recently used senders are evicted past capacity and entries idle
// longer than the TTL are dropped on access.
type Store struct {
	mu      sync.Mutex
	idleTTL time.Duration
	now     func() time.Time
	items   *lru.Cache[string, *entry]
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store. capacity <= 0 defaults to 10000 and
// idleTTL <= 0 disables expiry.
func NewStore(capacity int, idleTTL time.Duration, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = 10000
	}
	items, _ := lru.NewWithEvict[string, *entry](capacity, func(sender string, _ *entry) {
		logging.Get(logging.CategoryContext).Debug("context for %s evicted", sender)
	})
	s := &Store{
		idleTTL: idleTTL,
		now:     time.Now,
		items:   items,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the sender's context, creating an empty one on first use.
func (s *Store) Get(sender string) Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ent, ok := s.items.Get(sender); ok {
		if !s.expired(ent, now) {
			ent.touched = now
			return ent.ctx
		}
		logging.Get(logging.CategoryContext).Debug("context for %s expired after %v idle", sender, now.Sub(ent.touched))
		s.items.Remove(sender)
	}
	return s.insert(sender, now).ctx
}

// Set overwrites the sender's last understood text and its origin.
func (s *Store) Set(sender, text string, origin Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ent, ok := s.items.Get(sender)
	if !ok {
		ent = s.insert(sender, now)
	}
	ent.ctx.LastText = text
	ent.ctx.LastIntent = origin
	ent.ctx.UpdatedAt = now
	ent.touched = now
}

// Len returns the number of tracked senders.
func (s *Store) Len() int {
	return s.items.Len()
}

// Peek returns the stored context without creating or touching it.
func (s *Store) Peek(sender string) (Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.items.Peek(sender)
	if !ok || s.expired(ent, s.now()) {
		return Context{}, false
	}
	return ent.ctx, true
}

func (s *Store) expired(ent *entry, now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(ent.touched) > s.idleTTL
}

func (s *Store) insert(sender string, now time.Time) *entry {
	ent := &entry{
		ctx:     Context{Sender: sender, LastIntent: OriginNone},
		touched: now,
	}
	s.items.Add(sender, ent)
	return ent
}
