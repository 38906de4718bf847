package session

import (
	"context"

	"github.com/Domenick1991/barberbooking/internal/domain"
)

// Store keeps one conversation session per user.
type Store interface {
	// Get returns nil, nil when the user has no session.
	Get(ctx context.Context, userID int64) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Clear(ctx context.Context, userID int64) error
}
