package session

import (
	"context"
	"sync"

	"github.com/Domenick1991/barberbooking/internal/domain"
)

// MemoryStore keeps sessions in process. Entries live until cleared.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]domain.Session)}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	sess.Candidates = append([]domain.Candidate(nil), sess.Candidates...)
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *domain.Session) error {
	cp := *sess
	cp.Candidates = append([]domain.Candidate(nil), sess.Candidates...)
	s.mu.Lock()
	s.sessions[sess.UserID] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
