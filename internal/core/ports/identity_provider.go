package ports

import (
	"context"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

// IdentityProvider is the external service that issues and tears down login
// sessions from email/password credentials. Session storage, token refresh
// and password verification all live behind this interface.
type IdentityProvider interface {
	// CurrentSession returns the active session, or (nil, nil) when none exists.
	CurrentSession(ctx context.Context) (*domain.Session, error)

	// OnSessionChange registers a handler invoked on every session change.
	// The handler receives nil when the session has ended. The returned
	// function releases the subscription.
	OnSessionChange(handler func(*domain.Session)) (unsubscribe func())

	// SignInWithPassword verifies credentials and establishes a session.
	// Rejected credentials surface as domain.ErrInvalidCredentials.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	// SignUp creates a provider account and establishes a session for it.
	// A duplicate email surfaces as domain.ErrEmailTaken.
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)

	// SignOut ends the active session. Signing out with no session is a no-op.
	SignOut(ctx context.Context) error
}
