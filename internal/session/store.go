package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// Store keeps sessions in memory and expires them after a period of
// inactivity. Nothing is persisted.
type Store struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewStore creates a store whose sessions expire ttl after their last access.
// Expired entries are purged every cleanup interval.
func NewStore(ttl, cleanup time.Duration) *Store {
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Debug().Str("session_id", id).Msg("Session evicted")
	})
	return &Store{c: c, ttl: ttl}
}

// Create registers a new empty session under a random UUID.
func (st *Store) Create() *Session {
	s := New(uuid.NewString())
	st.c.Set(s.ID(), s, cache.DefaultExpiration)
	log.Debug().Str("session_id", s.ID()).Msg("Session created")
	return s
}

// Get returns the session and refreshes its expiry.
func (st *Store) Get(id string) (*Session, bool) {
	v, ok := st.c.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	st.c.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (st *Store) Delete(id string) {
	st.c.Delete(id)
}

// Len reports the number of live sessions, including any expired ones not
// yet purged.
func (st *Store) Len() int {
	return st.c.ItemCount()
}

// TTL returns the idle expiry applied to sessions.
func (st *Store) TTL() time.Duration {
	return st.ttl
}
