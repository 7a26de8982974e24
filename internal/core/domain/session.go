package domain

import "time"

// Session is an identity-provider-issued login session. The token format and
// refresh behavior belong to the provider; this system treats the session as
// an opaque handle carrying the account identity it was issued for.
type Session struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
