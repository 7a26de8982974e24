package ports

import (
	"context"
	"time"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

// ProfileStore persists application-level user profiles. Lookups expect at
// most one row and return domain.ErrProfileNotFound when nothing matches.
type ProfileStore interface {
	FindByAuthProviderID(ctx context.Context, providerID string) (*domain.UserProfile, error)
	FindByEmailAndRole(ctx context.Context, email string, role domain.Role) (*domain.UserProfile, error)

	// FindUnlinkedByEmail matches only profiles with no provider link,
	// i.e. rows created by offline seeding that signup never touched.
	FindUnlinkedByEmail(ctx context.Context, email string) (*domain.UserProfile, error)

	// Insert creates a profile and returns it with its assigned id.
	// A duplicate email surfaces as domain.ErrEmailTaken.
	Insert(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error)

	// LinkProvider sets the provider account id on an existing profile.
	LinkProvider(ctx context.Context, profileID, providerID string) error

	// StampLastLogin records the time of a successful session establishment.
	StampLastLogin(ctx context.Context, profileID string, at time.Time) error
}
