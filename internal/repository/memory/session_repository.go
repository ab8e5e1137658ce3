package memory

import (
	"sync"
	"time"

	"subchapter-tutor-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionEntry pairs a session with the lock that serializes its actions.
type SessionEntry struct {
	mu      sync.Mutex
	Session *store.Session
	// Closed is set once the entry has left the repository.
	Closed bool

	evicted bool // guarded by SessionRepository.mu
}

func (e *SessionEntry) Lock()   { e.mu.Lock() }
func (e *SessionEntry) Unlock() { e.mu.Unlock() }

type SessionRepository struct {
	cache *cache.Cache

	mu      sync.Mutex
	onEvict func(*SessionEntry)
}

// NewSessionRepository keeps sessions until they sit idle for idleTTL.
func NewSessionRepository(idleTTL time.Duration, onEvict func(*SessionEntry)) *SessionRepository {
	r := &SessionRepository{
		cache: cache.New(idleTTL, idleTTL/6+time.Second),
	}
	r.cache.OnEvicted(r.handleEvicted)
	r.SetOnEvicted(onEvict)
	return r
}

// SetOnEvicted registers fn for every entry removed by expiry or Delete.
// fn runs without the entry lock held.
func (r *SessionRepository) SetOnEvicted(fn func(*SessionEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Save stores the entry and restarts its idle timer. An entry that has
// already been evicted is never stored again.
func (r *SessionRepository) Save(entry *SessionEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.evicted {
		return
	}
	r.cache.Set(entry.Session.ID, entry, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*SessionEntry, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*SessionEntry), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// Flush drops every session, running onEvict for each.
func (r *SessionRepository) Flush() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}

func (r *SessionRepository) handleEvicted(key string, v interface{}) {
	entry := v.(*SessionEntry)

	r.mu.Lock()
	if entry.evicted {
		r.mu.Unlock()
		return
	}
	entry.evicted = true
	fn := r.onEvict
	r.mu.Unlock()

	// A Save racing the removal may have put the entry back.
	if x, found := r.cache.Get(key); found && x == entry {
		r.cache.Delete(key)
	}

	if fn != nil {
		fn(entry)
	}
}
