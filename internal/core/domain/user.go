package domain

import (
	"errors"
	"time"
)

// Role is the authorization tier assigned to a profile at signup.
// Roles are immutable afterwards; there is no role-change operation.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleGuard    Role = "guard"
)

// Valid reports whether r is one of the three supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleGuard:
		return true
	}
	return false
}

// DefaultDepartment is assigned when signup omits a department.
const DefaultDepartment = "General"

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrEmailTaken = errors.New("email already registered")
var ErrProfileNotFound = errors.New("profile not found")
var ErrAccountNotFound = errors.New("account not found")
var ErrRoleMismatch = errors.New("role mismatch")
var ErrLockedOut = errors.New("too many failed login attempts")

// UserProfile is the persisted application-level user row, distinct from the
// identity provider's own account record. Rows are created either by an
// offline seeding process (unlinked) or by signup (linked immediately); they
// are never deleted by this system.
type UserProfile struct {
	ID             string     `json:"id"`
	AuthProviderID string     `json:"auth_provider_id,omitempty"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           Role       `json:"role"`
	Department     string     `json:"department"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// Linked reports whether the profile is associated with an identity-provider
// account. Pre-seeded demo profiles stay unlinked until a real signup or a
// login-time email match links them.
func (p *UserProfile) Linked() bool {
	return p.AuthProviderID != ""
}

// SessionUser is the in-memory projection of a UserProfile exposed to
// consumers while a session is active. It is destroyed on logout or when the
// identity provider reports that no session exists.
type SessionUser struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       Role       `json:"role"`
	Department string     `json:"department"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	Linked     bool       `json:"linked"`
}

// NewSessionUser projects a profile into its session view.
func NewSessionUser(p *UserProfile) *SessionUser {
	return &SessionUser{
		ID:         p.ID,
		Email:      p.Email,
		Name:       p.Name,
		Role:       p.Role,
		Department: p.Department,
		LastLogin:  p.LastLogin,
		Linked:     p.Linked(),
	}
}
