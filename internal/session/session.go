// Package session persists assistant sessions. A session is nothing more
// than its browser history: the list of query strings and the cursor.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

// History is the persisted form of a session.
type History struct {
	Entries   []string  `json:"entries"`
	Index     int       `json:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store saves and loads session histories.
type Store interface {
	Save(ctx context.Context, id string, h History) error
	Load(ctx context.Context, id string) (History, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process. Expired entries are dropped on read.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	history   History
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: map[string]memoryEntry{}}
}

func (s *MemoryStore) Save(_ context.Context, id string, h History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.Entries = append([]string(nil), h.Entries...)
	s.sessions[id] = memoryEntry{history: h, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return History{}, ErrNotFound
	}
	if s.ttl > 0 && !s.now().Before(entry.expiresAt) {
		delete(s.sessions, id)
		return History{}, ErrNotFound
	}
	h := entry.history
	h.Entries = append([]string(nil), h.Entries...)
	return h, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
