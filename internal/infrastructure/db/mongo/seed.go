package mongo

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

// SeedProfiles inserts the given unlinked profiles when they do not already
// exist. Used in demo mode so the demo credential table has rows to resolve
// against. Existing rows are left untouched.
func SeedProfiles(ctx context.Context, repo *ProfileRepository, profiles []domain.UserProfile, log zerolog.Logger) error {
	for i := range profiles {
		p := profiles[i]
		_, err := repo.FindByEmailAndRole(ctx, p.Email, p.Role)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return err
		}

		if _, err := repo.Insert(ctx, &p); err != nil {
			if errors.Is(err, domain.ErrEmailTaken) {
				continue
			}
			return err
		}
		log.Info().Str("email", p.Email).Str("role", string(p.Role)).Msg("seeded demo profile")
	}
	return nil
}
