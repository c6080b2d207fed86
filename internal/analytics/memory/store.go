// internal/analytics/memory/store.go
package memory

import (
	"errors"
	"sync"
	"time"
)

var ErrEmptySessionID = errors.New("EMPTY_SESSION_ID")

type session struct {
	mu       sync.Mutex
	memory   *ContextMemory
	lastSeen time.Time
}

// Store owns one ContextMemory per conversation. Calls for the same session
// are serialized; different sessions never contend on each other's lock.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	capacity int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore creates a store whose memories hold capacity entries. Sessions
// idle for longer than idleTTL are dropped by Sweep; zero disables expiry.
func NewStore(capacity int, idleTTL time.Duration) *Store {
	return &Store{
		sessions: map[string]*session{},
		capacity: capacity,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Do runs fn with exclusive access to the session's memory, creating the
// session on first use.
func (s *Store) Do(sessionID string, fn func(*ContextMemory) error) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{memory: New(s.capacity)}
		s.sessions[sessionID] = sess
	}
	sess.lastSeen = s.now()
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.memory)
}

// Drop forgets a session entirely.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle past the TTL and returns how many were removed.
// Sessions whose lock is currently held are kept.
func (s *Store) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if !sess.lastSeen.Before(cutoff) {
			continue
		}
		if !sess.mu.TryLock() {
			continue
		}
		delete(s.sessions, id)
		sess.mu.Unlock()
		removed++
	}
	return removed
}
