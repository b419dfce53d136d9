package session

import "sync"

const shardCount = 16

type shard struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// Store maps user IDs to sessions. Sharded so one user's read-modify-write
// never contends with another's beyond its shard.
type Store struct {
	shards [shardCount]*shard
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[int64]Session)}
	}
	return s
}

func (s *Store) shardFor(userID int64) *shard {
	// Negative IDs occur for Telegram chats; normalize before bucketing.
	if userID < 0 {
		userID = -userID
	}
	return s.shards[userID%shardCount]
}

// Get returns the user's session, creating an idle one if absent.
func (s *Store) Get(userID int64) Session {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[userID]
	if !ok {
		sess = Session{State: StateIdle}
		sh.sessions[userID] = sess
	}
	return sess
}

// Update applies fn to the user's session under the shard lock. fn sees the
// current session (idle default if absent) and its result is stored back.
func (s *Store) Update(userID int64, fn func(*Session)) Session {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[userID]
	if !ok {
		sess = Session{State: StateIdle}
	}
	fn(&sess)
	sh.sessions[userID] = sess
	return sess
}

// Clear resets the user's session to idle with all fields unset.
func (s *Store) Clear(userID int64) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.sessions, userID)
}
