// Package identity implements the IdentityProvider port with locally managed
// accounts: bcrypt password hashes in the account repository, the active
// session in the session store, and HS256 access tokens. Any hosted
// email/password identity service could replace it behind the same port.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

// Account is a provider-side credential record. It is distinct from the
// application's UserProfile; profiles reference accounts via auth_provider_id.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountRepository persists provider accounts. FindByEmail returns
// domain.ErrAccountNotFound when no account matches.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, account *Account) error
}

// SessionStore keeps the active session across restarts. Current returns
// (nil, nil) when no session is stored.
type SessionStore interface {
	Current(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Provider issues and tears down sessions. Session-change handlers run
// synchronously after each change, outside the provider's lock.
type Provider struct {
	accounts  AccountRepository
	sessions  SessionStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger

	mu       sync.Mutex
	handlers map[int]func(*domain.Session)
	nextSub  int
}

func NewProvider(accounts AccountRepository, sessions SessionStore, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *Provider {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Provider{
		accounts:  accounts,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		handlers:  make(map[int]func(*domain.Session)),
	}
}

// CurrentSession returns the stored session, discarding it if expired.
func (p *Provider) CurrentSession(ctx context.Context) (*domain.Session, error) {
	sess, err := p.sessions.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(time.Now().UTC()) {
		if err := p.sessions.Clear(ctx); err != nil {
			p.logger.Error().Err(err).Msg("failed to clear expired session")
		}
		return nil, nil
	}
	return sess, nil
}

// OnSessionChange registers handler; the returned function unregisters it.
func (p *Provider) OnSessionChange(handler func(*domain.Session)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.handlers[id] = handler
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// SignInWithPassword verifies the password against the stored bcrypt hash and
// establishes a fresh session. Unknown email and wrong password are
// indistinguishable to the caller.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return p.establish(ctx, account)
}

// SignUp creates an account and immediately establishes a session for it.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	return p.establish(ctx, account)
}

// SignOut clears the stored session and notifies subscribers with nil.
// A sign-out with no active session is a no-op for subscribers' purposes but
// still clears the store.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	p.notify(nil)
	return nil
}

func (p *Provider) establish(ctx context.Context, account *Account) (*domain.Session, error) {
	now := time.Now().UTC()
	expires := now.Add(p.tokenTTL)

	token, err := p.issueToken(account, expires)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	sess := &domain.Session{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Email:       account.Email,
		AccessToken: token,
		ExpiresAt:   expires,
	}

	if err := p.sessions.Save(ctx, sess, p.tokenTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	p.notify(sess)
	return sess, nil
}

func (p *Provider) issueToken(account *Account, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"exp":   expires.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(p.jwtSecret))
}

func (p *Provider) notify(sess *domain.Session) {
	p.mu.Lock()
	fns := make([]func(*domain.Session), 0, len(p.handlers))
	for _, fn := range p.handlers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
