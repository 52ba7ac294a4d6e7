package ports

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

// SessionStore defines the interface for persisting conversation sessions.
// This is what lets a conversation pause on a question and resume on the next message.
type SessionStore interface {
	// Save persists the session under the given key.
	Save(ctx context.Context, sessionID string, s *domain.Session) error

	// Load retrieves the session for a given key.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session for a given key.
	Delete(ctx context.Context, sessionID string) error

	// List returns the keys of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
