package service

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

// DemoCredential is one entry of the fixed demo credential table. Demo
// accounts authenticate against this table instead of the identity provider.
//
// Plaintext credentials in a deliverable are acceptable only because the
// whole path is gated behind DEMO_MODE; production deployments run with the
// flag off and the table is never consulted.
type DemoCredential struct {
	Email    string
	Password string
	Role     domain.Role
}

// DefaultDemoCredentials returns the built-in demo table: one account per role.
func DefaultDemoCredentials() []DemoCredential {
	return []DemoCredential{
		{Email: "admin@company.com", Password: "admin123", Role: domain.RoleAdmin},
		{Email: "john@company.com", Password: "employee123", Role: domain.RoleEmployee},
		{Email: "guard@company.com", Password: "guard123", Role: domain.RoleGuard},
	}
}

// DemoProfiles returns the unlinked profile rows backing the demo table,
// for seeding stores that do not have them yet.
func DemoProfiles(now time.Time) []domain.UserProfile {
	return []domain.UserProfile{
		{Email: "admin@company.com", Name: "Ada Marsh", Role: domain.RoleAdmin, Department: "Management", CreatedAt: now},
		{Email: "john@company.com", Name: "John Carter", Role: domain.RoleEmployee, Department: "Operations", CreatedAt: now},
		{Email: "guard@company.com", Name: "Sam Okafor", Role: domain.RoleGuard, Department: "Security", CreatedAt: now},
	}
}

// DemoDirectory answers whether an (email, password, role) triple matches a
// demo credential.
type DemoDirectory struct {
	byKey map[string]string
}

// NewDemoDirectory builds a directory from the given credential table.
func NewDemoDirectory(creds []DemoCredential) *DemoDirectory {
	d := &DemoDirectory{byKey: make(map[string]string, len(creds))}
	for _, c := range creds {
		d.byKey[demoKey(c.Email, c.Role)] = c.Password
	}
	return d
}

// Matches reports whether the triple is a demo account. Password comparison
// is constant-time.
func (d *DemoDirectory) Matches(email, password string, role domain.Role) bool {
	want, ok := d.byKey[demoKey(email, role)]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(password)) == 1
}

func demoKey(email string, role domain.Role) string {
	return strings.ToLower(email) + "|" + string(role)
}
