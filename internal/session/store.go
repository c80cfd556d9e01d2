package session

import (
	"sort"
	"sync"
	"time"
)

// Store is the session table keyed by chat ID.
//
// Session values are only read or mutated while the caller holds that chat's
// lock from Lock. The table itself and the activity timestamps are guarded by
// the store's own mutex.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	touched  map[int64]time.Time
	locks    map[int64]*sync.Mutex
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		touched:  make(map[int64]time.Time),
		locks:    make(map[int64]*sync.Mutex),
		now:      time.Now,
	}
}

// Lock serializes work for a single chat and returns the unlock function.
// Chat locks are kept for the life of the process; callers only reach this
// after the authorization check, so the map stays bounded.
func (s *Store) Lock(chatID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) Get(chatID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	return sess, ok
}

// Create registers a new Collecting session, replacing any existing one.
func (s *Store) Create(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{ChatID: chatID, State: Collecting}
	s.sessions[chatID] = sess
	s.touched[chatID] = s.now()
	return sess
}

// Touch records activity for the chat's session.
func (s *Store) Touch(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[chatID]; ok {
		s.touched[chatID] = s.now()
	}
}

func (s *Store) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	delete(s.touched, chatID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Idle returns the chats whose sessions have seen no activity for at least
// ttl, in ascending chat ID order.
func (s *Store) Idle(ttl time.Duration) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	var ids []int64
	for id, at := range s.touched {
		if !at.After(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsIdle reports whether the chat has a session untouched for at least ttl.
func (s *Store) IsIdle(chatID int64, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.touched[chatID]
	return ok && !at.After(s.now().Add(-ttl))
}

// LastActivity returns when the chat's session was last touched.
func (s *Store) LastActivity(chatID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.touched[chatID]
	return at, ok
}
