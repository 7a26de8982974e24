package ports

import (
	"context"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

// SessionState is the derived read-only state exposed to consumers.
// IsLoading stays true until the first session resolution completes.
type SessionState struct {
	CurrentUser     *domain.SessionUser `json:"current_user"`
	IsAuthenticated bool                `json:"is_authenticated"`
	IsLoading       bool                `json:"is_loading"`
}

// SignupInput carries the fields for creating a linked profile.
// Department falls back to domain.DefaultDepartment when empty.
type SignupInput struct {
	Email      string
	Password   string
	Name       string
	Role       domain.Role
	Department string
}

// SessionManager orchestrates the identity provider and the profile store.
// Operations return typed domain errors; they never panic and log every
// failure branch internally.
type SessionManager interface {
	// Login authenticates for the requested role. Demo credentials are
	// checked before the identity provider is contacted.
	Login(ctx context.Context, email, password string, role domain.Role) error

	// Signup creates a provider account plus a linked profile. A failed
	// profile insert is compensated with a best-effort provider sign-out.
	Signup(ctx context.Context, in SignupInput) error

	// Logout clears the current user unconditionally and ends the provider
	// session when the current profile is linked. Idempotent.
	Logout(ctx context.Context)

	// Snapshot returns the current derived state.
	Snapshot() SessionState

	// SubscribeState registers fn to run whenever any state field changes.
	// The returned function releases the subscription.
	SubscribeState(fn func(SessionState)) (unsubscribe func())

	// CurrentRole returns the authenticated user's role, if any.
	CurrentRole() (domain.Role, bool)
}
