package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sentrydesk/access-system/internal/core/domain"
	"github.com/sentrydesk/access-system/internal/core/ports"
)

// StampQueue accepts fire-and-forget lastLogin writes. Failures are the
// queue's to log; callers never wait on the outcome.
type StampQueue interface {
	EnqueueLastLogin(profileID string, at time.Time)
}

// LoginLimiter tracks failed password attempts per email. A nil limiter
// disables lockout entirely.
type LoginLimiter interface {
	LockedOut(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// SessionManager orchestrates the identity provider and the profile store
// into a single role-gated session context. It holds the only mutable state
// in the system: the current session user and the loading flag.
//
// Overlapping operations are allowed to race on the state; both paths
// converge on the same resolved profile, so last-writer-wins is acceptable.
// IsLoading is a plain flag, not a reference count.
type SessionManager struct {
	provider ports.IdentityProvider
	profiles ports.ProfileStore
	stamps   StampQueue
	limiter  LoginLimiter
	demo     *DemoDirectory
	logger   zerolog.Logger

	mu          sync.Mutex
	current     *domain.SessionUser
	loading     bool
	pendingRole *domain.Role
	subs        map[int]func(ports.SessionState)
	nextSub     int
	unsub       func()
}

// NewSessionManager wires the manager. provider, profiles and stamps are
// required; limiter and demo may be nil to disable lockout and the demo
// credential path respectively.
func NewSessionManager(
	provider ports.IdentityProvider,
	profiles ports.ProfileStore,
	stamps StampQueue,
	limiter LoginLimiter,
	demo *DemoDirectory,
	logger zerolog.Logger,
) *SessionManager {
	if provider == nil || profiles == nil || stamps == nil {
		panic("service: NewSessionManager requires provider, profiles and stamps")
	}
	return &SessionManager{
		provider: provider,
		profiles: profiles,
		stamps:   stamps,
		limiter:  limiter,
		demo:     demo,
		logger:   logger,
		loading:  true,
		subs:     make(map[int]func(ports.SessionState)),
	}
}

// Start restores any existing provider session and registers the persistent
// session-change subscription. IsLoading drops to false exactly once, after
// the first resolution completes, whether or not a session was found.
func (m *SessionManager) Start(ctx context.Context) {
	sess, err := m.provider.CurrentSession(ctx)
	switch {
	case err != nil:
		m.logger.Error().Err(err).Msg("session restore failed")
	case sess != nil:
		m.resolveSession(ctx, sess)
	}
	m.setLoading(false)

	m.mu.Lock()
	m.unsub = m.provider.OnSessionChange(func(s *domain.Session) {
		m.handleSessionChange(context.Background(), s)
	})
	m.mu.Unlock()
}

// Close releases the provider subscription. Safe to call more than once.
func (m *SessionManager) Close() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Login authenticates for the requested role. Order is fixed: the demo
// credential table is consulted first, and only a miss falls through to the
// identity provider with the unlinked-email fallback.
func (m *SessionManager) Login(ctx context.Context, email, password string, role domain.Role) error {
	// Lowercased once here so the profile lookup, the demo credential table
	// and the limiter key all agree on the same address.
	email = strings.ToLower(email)
	if email == "" || password == "" || !role.Valid() {
		return domain.ErrInvalidCredentials
	}

	m.setLoading(true)
	defer m.setLoading(false)

	if m.limiter != nil {
		locked, err := m.limiter.LockedOut(ctx, email)
		if err != nil {
			m.logger.Error().Err(err).Str("email", email).Msg("lockout check failed")
		} else if locked {
			m.logger.Warn().Str("email", email).Msg("login rejected: locked out")
			return domain.ErrLockedOut
		}
	}

	if m.demo != nil {
		ok, err := m.loginDemo(ctx, email, password, role)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return m.loginProvider(ctx, email, password, role)
}

// loginDemo attempts the demo-account path: a profile lookup by (email, role)
// followed by a match against the fixed credential table. It never contacts
// the identity provider. Returns (false, nil) when the pair is not a demo
// account, so the caller can fall through.
func (m *SessionManager) loginDemo(ctx context.Context, email, password string, role domain.Role) (bool, error) {
	profile, err := m.profiles.FindByEmailAndRole(ctx, email, role)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			m.logger.Error().Err(err).Str("email", email).Msg("demo profile lookup failed")
		}
		return false, nil
	}

	if !m.demo.Matches(email, password, role) {
		return false, nil
	}

	now := time.Now().UTC()
	profile.LastLogin = &now
	m.stamps.EnqueueLastLogin(profile.ID, now)
	m.setCurrent(domain.NewSessionUser(profile))
	m.resetLimiter(ctx, email)
	m.logger.Info().Str("email", email).Str("role", string(role)).Msg("demo login succeeded")
	return true, nil
}

// loginProvider performs the identity-provider path, including the
// unlinked-profile email fallback and the role gate. On any business-rule
// failure after the provider accepted the credentials, the provider session
// is signed back out so no half-authenticated state survives.
func (m *SessionManager) loginProvider(ctx context.Context, email, password string, role domain.Role) error {
	// The provider notifies synchronously during sign-in, before the role gate
	// below has run. While this login is in flight, resolveSession withholds
	// any profile whose role differs from the requested one, so a mismatched
	// login never publishes the user or stamps lastLogin.
	m.mu.Lock()
	m.pendingRole = &role
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.pendingRole = nil
		m.mu.Unlock()
	}()

	sess, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			m.recordFailure(ctx, email)
			m.logger.Warn().Str("email", email).Msg("provider rejected credentials")
		} else {
			m.logger.Error().Err(err).Str("email", email).Msg("provider sign-in failed")
		}
		return err
	}

	profile, err := m.profiles.FindByAuthProviderID(ctx, sess.AccountID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		profile, err = m.linkByEmail(ctx, sess, email)
	}
	if err != nil {
		m.signOutProvider(ctx)
		if errors.Is(err, domain.ErrProfileNotFound) {
			m.logger.Warn().Str("email", email).Msg("no profile for provider account")
		} else {
			m.logger.Error().Err(err).Str("email", email).Msg("profile resolution failed")
		}
		return err
	}

	if profile.Role != role {
		m.signOutProvider(ctx)
		m.logger.Warn().
			Str("email", email).
			Str("have", string(profile.Role)).
			Str("want", string(role)).
			Msg("login rejected: role mismatch")
		return domain.ErrRoleMismatch
	}

	m.resetLimiter(ctx, email)
	// The session-change notification performs the same resolution, but the
	// provider may have delivered it before the link above existed. Re-run
	// the shared resolution path; it is idempotent.
	m.resolveSession(ctx, sess)
	m.logger.Info().Str("email", email).Str("role", string(role)).Msg("provider login succeeded")
	return nil
}

// linkByEmail falls back to an unlinked profile with a matching email and
// links it to the provider account.
func (m *SessionManager) linkByEmail(ctx context.Context, sess *domain.Session, email string) (*domain.UserProfile, error) {
	profile, err := m.profiles.FindUnlinkedByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := m.profiles.LinkProvider(ctx, profile.ID, sess.AccountID); err != nil {
		return nil, err
	}
	profile.AuthProviderID = sess.AccountID
	m.logger.Info().Str("email", email).Str("profile_id", profile.ID).Msg("profile linked to provider account")
	return profile, nil
}

// Signup creates a provider account and a linked profile. A failed insert is
// compensated with a best-effort sign-out; the orphaned provider account is
// accepted and not deleted.
func (m *SessionManager) Signup(ctx context.Context, in ports.SignupInput) error {
	in.Email = strings.ToLower(in.Email)
	if in.Email == "" || in.Password == "" || in.Name == "" || !in.Role.Valid() {
		return domain.ErrInvalidCredentials
	}

	m.setLoading(true)
	defer m.setLoading(false)

	sess, err := m.provider.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		m.logger.Error().Err(err).Str("email", in.Email).Msg("provider signup failed")
		return err
	}

	department := in.Department
	if department == "" {
		department = domain.DefaultDepartment
	}

	profile := &domain.UserProfile{
		AuthProviderID: sess.AccountID,
		Email:          in.Email,
		Name:           in.Name,
		Role:           in.Role,
		Department:     department,
		CreatedAt:      time.Now().UTC(),
	}

	if _, err := m.profiles.Insert(ctx, profile); err != nil {
		m.signOutProvider(ctx)
		m.logger.Error().Err(err).Str("email", in.Email).Msg("profile insert failed, provider account orphaned")
		return err
	}

	m.resolveSession(ctx, sess)
	m.logger.Info().Str("email", in.Email).Str("role", string(in.Role)).Msg("signup succeeded")
	return nil
}

// Logout clears the current user unconditionally. The provider session is
// ended only when the current profile is linked, so demo sessions never sign
// out a provider session they never opened. Never fails visibly.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	linked := m.current != nil && m.current.Linked
	m.mu.Unlock()

	if linked {
		m.signOutProvider(ctx)
	}
	m.setCurrent(nil)
	m.logger.Info().Msg("logged out")
}

// Snapshot returns the derived read-only state.
func (m *SessionManager) Snapshot() ports.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// SubscribeState registers fn to run after every state change.
func (m *SessionManager) SubscribeState(fn func(ports.SessionState)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// CurrentRole returns the authenticated user's role, if any.
func (m *SessionManager) CurrentRole() (domain.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", false
	}
	return m.current.Role, true
}

// handleSessionChange is the subscription handler. A nil session destroys the
// current user; a live one re-runs profile resolution. Re-delivery of the
// same session resolves to the same profile, so the handler is idempotent.
func (m *SessionManager) handleSessionChange(ctx context.Context, sess *domain.Session) {
	if sess == nil {
		m.setCurrent(nil)
		return
	}
	m.resolveSession(ctx, sess)
}

// resolveSession maps a provider session to its profile and publishes it as
// the current user. On lookup failure the state is left untouched, as is a
// profile whose role differs from an in-flight login's requested role. The
// lastLogin stamp is detached; its failure is logged by the queue, never
// surfaced here.
func (m *SessionManager) resolveSession(ctx context.Context, sess *domain.Session) {
	profile, err := m.profiles.FindByAuthProviderID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			m.logger.Debug().Str("account_id", sess.AccountID).Msg("session has no profile yet")
		} else {
			m.logger.Error().Err(err).Str("account_id", sess.AccountID).Msg("profile resolution failed")
		}
		return
	}

	m.mu.Lock()
	pending := m.pendingRole
	m.mu.Unlock()
	if pending != nil && profile.Role != *pending {
		m.logger.Debug().
			Str("account_id", sess.AccountID).
			Str("role", string(profile.Role)).
			Msg("withholding session until role check completes")
		return
	}

	now := time.Now().UTC()
	profile.LastLogin = &now
	m.setCurrent(domain.NewSessionUser(profile))
	m.stamps.EnqueueLastLogin(profile.ID, now)
}

func (m *SessionManager) signOutProvider(ctx context.Context) {
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Error().Err(err).Msg("provider sign-out failed")
	}
}

func (m *SessionManager) recordFailure(ctx context.Context, email string) {
	if m.limiter == nil {
		return
	}
	if err := m.limiter.RecordFailure(ctx, email); err != nil {
		m.logger.Error().Err(err).Str("email", email).Msg("failed to record login failure")
	}
}

func (m *SessionManager) resetLimiter(ctx context.Context, email string) {
	if m.limiter == nil {
		return
	}
	if err := m.limiter.Reset(ctx, email); err != nil {
		m.logger.Error().Err(err).Str("email", email).Msg("failed to reset login failures")
	}
}

func (m *SessionManager) setCurrent(u *domain.SessionUser) {
	m.mu.Lock()
	m.current = u
	state := m.stateLocked()
	fns := m.subscribersLocked()
	m.mu.Unlock()
	notify(fns, state)
}

func (m *SessionManager) setLoading(v bool) {
	m.mu.Lock()
	if m.loading == v {
		m.mu.Unlock()
		return
	}
	m.loading = v
	state := m.stateLocked()
	fns := m.subscribersLocked()
	m.mu.Unlock()
	notify(fns, state)
}

func (m *SessionManager) stateLocked() ports.SessionState {
	return ports.SessionState{
		CurrentUser:     m.current,
		IsAuthenticated: m.current != nil,
		IsLoading:       m.loading,
	}
}

func (m *SessionManager) subscribersLocked() []func(ports.SessionState) {
	fns := make([]func(ports.SessionState), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(ports.SessionState), state ports.SessionState) {
	for _, fn := range fns {
		fn(state)
	}
}
