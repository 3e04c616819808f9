package memory

import (
	"sync"
	"time"

	"tara-tutor-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps tutoring sessions in process memory. A ttl of 0 keeps sessions
// until they are deleted or the process exits.
type SessionRepository struct {
	cache        *cache.Cache
	initialStage string

	// guards compare-and-set on cache entries
	mu sync.Mutex
}

func NewSessionRepository(ttl time.Duration, initialStage string) *SessionRepository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 10 * time.Minute
	}
	return &SessionRepository{
		cache:        cache.New(expiration, cleanup),
		initialStage: initialStage,
	}
}

// OnEvicted registers a hook run when a session expires or is deleted.
func (r *SessionRepository) OnEvicted(fn func(session *store.Session)) {
	r.cache.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*store.Session); ok {
			fn(s)
		}
	})
}

// GetOrCreate returns the session for id, creating it on first access. Concurrent callers
// for the same id always receive the same session.
func (r *SessionRepository) GetOrCreate(sessionID string) *store.Session {
	if sessionID == "" {
		sessionID = store.DefaultSessionID
	}
	if s, found := r.Get(sessionID); found {
		return s
	}
	fresh := store.NewSession(sessionID, r.initialStage)
	if err := r.cache.Add(sessionID, fresh, cache.DefaultExpiration); err == nil {
		return fresh
	}
	// lost the race to another creator
	if s, found := r.Get(sessionID); found {
		return s
	}
	r.cache.Set(sessionID, fresh, cache.DefaultExpiration)
	return fresh
}

// Save refreshes the session's expiration. A session that is no longer the cached one for its
// id is left out, so a late write never replaces a newer session.
func (r *SessionRepository) Save(session *store.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, found := r.Get(session.ID); found && cur == session {
		r.cache.Set(session.ID, session, cache.DefaultExpiration)
	}
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

// Evict deletes session only while it is still the cached one for its id.
func (r *SessionRepository) Evict(session *store.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, found := r.Get(session.ID); found && cur == session {
		r.cache.Delete(session.ID)
	}
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
