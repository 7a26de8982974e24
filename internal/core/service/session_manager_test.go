package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sentrydesk/access-system/internal/core/domain"
	"github.com/sentrydesk/access-system/internal/core/ports"
)

type stubProvider struct {
	mu       sync.Mutex
	session  *domain.Session
	handlers map[int]func(*domain.Session)
	nextSub  int

	signInFn func(email, password string) (*domain.Session, error)
	signUpFn func(email, password string) (*domain.Session, error)

	signInCalls  int
	signUpCalls  int
	signOutCalls int
}

func newStubProvider() *stubProvider {
	return &stubProvider{handlers: make(map[int]func(*domain.Session))}
}

func (p *stubProvider) CurrentSession(_ context.Context) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, nil
}

func (p *stubProvider) OnSessionChange(handler func(*domain.Session)) func() {
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

func (p *stubProvider) SignInWithPassword(_ context.Context, email, password string) (*domain.Session, error) {
	p.mu.Lock()
	p.signInCalls++
	fn := p.signInFn
	p.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrInvalidCredentials
	}
	sess, err := fn(email, password)
	if err != nil {
		return nil, err
	}
	p.setSession(sess)
	return sess, nil
}

func (p *stubProvider) SignUp(_ context.Context, email, password string) (*domain.Session, error) {
	p.mu.Lock()
	p.signUpCalls++
	fn := p.signUpFn
	p.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrEmailTaken
	}
	sess, err := fn(email, password)
	if err != nil {
		return nil, err
	}
	p.setSession(sess)
	return sess, nil
}

func (p *stubProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.signOutCalls++
	p.mu.Unlock()
	p.setSession(nil)
	return nil
}

func (p *stubProvider) setSession(sess *domain.Session) {
	p.mu.Lock()
	p.session = sess
	fns := make([]func(*domain.Session), 0, len(p.handlers))
	for _, fn := range p.handlers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(sess)
	}
}

type stubProfiles struct {
	mu       sync.Mutex
	rows     map[string]*domain.UserProfile // keyed by profile id
	failWith error
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{rows: make(map[string]*domain.UserProfile)}
}

func cloneProfile(p *domain.UserProfile) *domain.UserProfile {
	if p == nil {
		return nil
	}
	clone := *p
	if p.LastLogin != nil {
		t := *p.LastLogin
		clone.LastLogin = &t
	}
	return &clone
}

func (s *stubProfiles) add(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = p.Email
	}
	s.rows[p.ID] = cloneProfile(&p)
}

func (s *stubProfiles) FindByAuthProviderID(_ context.Context, providerID string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, p := range s.rows {
		if p.AuthProviderID == providerID && providerID != "" {
			return cloneProfile(p), nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (s *stubProfiles) FindByEmailAndRole(_ context.Context, email string, role domain.Role) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, p := range s.rows {
		if p.Email == email && p.Role == role {
			return cloneProfile(p), nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (s *stubProfiles) FindUnlinkedByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, p := range s.rows {
		if p.Email == email && p.AuthProviderID == "" {
			return cloneProfile(p), nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (s *stubProfiles) Insert(_ context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, p := range s.rows {
		if p.Email == profile.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	copy := cloneProfile(profile)
	if copy.ID == "" {
		copy.ID = profile.Email
	}
	s.rows[copy.ID] = cloneProfile(copy)
	return copy, nil
}

func (s *stubProfiles) LinkProvider(_ context.Context, profileID, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	p, ok := s.rows[profileID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.AuthProviderID = providerID
	return nil
}

func (s *stubProfiles) StampLastLogin(_ context.Context, profileID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[profileID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.LastLogin = &at
	return nil
}

// syncStamps applies stamps inline so tests can assert on the store.
type syncStamps struct {
	store   *stubProfiles
	mu      sync.Mutex
	stamped []string
}

func (q *syncStamps) EnqueueLastLogin(profileID string, at time.Time) {
	q.mu.Lock()
	q.stamped = append(q.stamped, profileID)
	q.mu.Unlock()
	_ = q.store.StampLastLogin(context.Background(), profileID, at)
}

type stubLimiter struct {
	locked   bool
	failures int
	resets   int
}

func (l *stubLimiter) LockedOut(_ context.Context, _ string) (bool, error) { return l.locked, nil }
func (l *stubLimiter) RecordFailure(_ context.Context, _ string) error     { l.failures++; return nil }
func (l *stubLimiter) Reset(_ context.Context, _ string) error             { l.resets++; return nil }

func newTestManager(provider *stubProvider, profiles *stubProfiles, demo bool) (*SessionManager, *syncStamps) {
	stamps := &syncStamps{store: profiles}
	var dir *DemoDirectory
	if demo {
		dir = NewDemoDirectory(DefaultDemoCredentials())
	}
	m := NewSessionManager(provider, profiles, stamps, nil, dir, zerolog.Nop())
	return m, stamps
}

func seedDemoRows(profiles *stubProfiles) {
	for _, p := range DemoProfiles(time.Now().UTC().Add(-24 * time.Hour)) {
		profiles.add(p)
	}
}

func TestSessionManager_Login_DemoSuccess(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	seedDemoRows(profiles)
	m, stamps := newTestManager(provider, profiles, true)
	m.Start(context.Background())

	before := time.Now().UTC()
	if err := m.Login(context.Background(), "john@company.com", "employee123", domain.RoleEmployee); err != nil {
		t.Fatalf("demo login failed: %v", err)
	}

	state := m.Snapshot()
	if !state.IsAuthenticated || state.CurrentUser == nil {
		t.Fatalf("expected authenticated state, got %+v", state)
	}
	if state.CurrentUser.Role != domain.RoleEmployee {
		t.Fatalf("unexpected role: %s", state.CurrentUser.Role)
	}
	if state.CurrentUser.LastLogin == nil || state.CurrentUser.LastLogin.Before(before.Add(-time.Second)) {
		t.Fatalf("lastLogin not stamped: %+v", state.CurrentUser.LastLogin)
	}
	if provider.signInCalls != 0 {
		t.Fatalf("demo path must not contact the provider, got %d calls", provider.signInCalls)
	}
	if len(stamps.stamped) != 1 {
		t.Fatalf("expected one lastLogin stamp, got %d", len(stamps.stamped))
	}

	stored, err := profiles.FindByEmailAndRole(context.Background(), "john@company.com", domain.RoleEmployee)
	if err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	if stored.LastLogin == nil {
		t.Fatalf("lastLogin stamp not persisted")
	}
}

func TestSessionManager_Login_Rejected_StateUnchanged(t *testing.T) {
	provider := newStubProvider() // signInFn nil: rejects everything
	profiles := newStubProfiles()
	seedDemoRows(profiles)
	m, _ := newTestManager(provider, profiles, true)
	m.Start(context.Background())

	if err := m.Login(context.Background(), "john@company.com", "employee123", domain.RoleEmployee); err != nil {
		t.Fatalf("setup login failed: %v", err)
	}
	prior := m.Snapshot()

	err := m.Login(context.Background(), "nobody@company.com", "wrong", domain.RoleEmployee)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	after := m.Snapshot()
	if after.CurrentUser == nil || after.CurrentUser.Email != prior.CurrentUser.Email {
		t.Fatalf("currentUser changed after rejected login: %+v", after.CurrentUser)
	}
}

func TestSessionManager_Login_WrongDemoPassword_FallsThrough(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	seedDemoRows(profiles)
	m, _ := newTestManager(provider, profiles, true)
	m.Start(context.Background())

	err := m.Login(context.Background(), "john@company.com", "notthedemo", domain.RoleEmployee)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if provider.signInCalls != 1 {
		t.Fatalf("expected fall-through to provider, got %d calls", provider.signInCalls)
	}
}

func TestSessionManager_Login_RoleMismatch_SignsOut(t *testing.T) {
	provider := newStubProvider()
	provider.signInFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-1", AccountID: "acct-1", Email: email}, nil
	}
	profiles := newStubProfiles()
	profiles.add(domain.UserProfile{
		ID: "p1", AuthProviderID: "acct-1", Email: "carla@company.com",
		Name: "Carla", Role: domain.RoleGuard, Department: "Security",
	})
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	err := m.Login(context.Background(), "carla@company.com", "pw", domain.RoleAdmin)
	if !errors.Is(err, domain.ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch, got %v", err)
	}
	if provider.signOutCalls == 0 {
		t.Fatalf("provider session not terminated on role mismatch")
	}
	sess, _ := provider.CurrentSession(context.Background())
	if sess != nil {
		t.Fatalf("expected empty provider session, got %+v", sess)
	}
	if m.Snapshot().IsAuthenticated {
		t.Fatalf("must not be authenticated after role mismatch")
	}
}

func TestSessionManager_Login_RoleMismatch_NeverExposesUser(t *testing.T) {
	provider := newStubProvider()
	provider.signInFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-10", AccountID: "acct-10", Email: email}, nil
	}
	profiles := newStubProfiles()
	priorLogin := time.Now().UTC().Add(-48 * time.Hour)
	profiles.add(domain.UserProfile{
		ID: "p10", AuthProviderID: "acct-10", Email: "rita@company.com",
		Name: "Rita", Role: domain.RoleGuard, Department: "Security",
		LastLogin: &priorLogin,
	})
	m, stamps := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	// The provider notifies mid-login; no notification may carry the
	// mismatched user out to subscribers.
	var mu sync.Mutex
	var exposed []*domain.SessionUser
	unsub := m.SubscribeState(func(s ports.SessionState) {
		mu.Lock()
		if s.CurrentUser != nil {
			exposed = append(exposed, s.CurrentUser)
		}
		mu.Unlock()
	})
	defer unsub()

	err := m.Login(context.Background(), "rita@company.com", "pw", domain.RoleAdmin)
	if !errors.Is(err, domain.ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch, got %v", err)
	}

	mu.Lock()
	seen := len(exposed)
	mu.Unlock()
	if seen != 0 {
		t.Fatalf("subscribers saw a user during a mismatched login: %+v", exposed[0])
	}
	if len(stamps.stamped) != 0 {
		t.Fatalf("lastLogin stamped %d time(s) for a failed login", len(stamps.stamped))
	}

	stored, err := profiles.FindByAuthProviderID(context.Background(), "acct-10")
	if err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	if stored.LastLogin == nil || !stored.LastLogin.Equal(priorLogin) {
		t.Fatalf("lastLogin changed on a failed login: %+v", stored.LastLogin)
	}
}

func TestSessionManager_Login_DemoEmailCaseInsensitive(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	seedDemoRows(profiles)
	m, _ := newTestManager(provider, profiles, true)
	m.Start(context.Background())

	if err := m.Login(context.Background(), "John@Company.com", "employee123", domain.RoleEmployee); err != nil {
		t.Fatalf("mixed-case demo login failed: %v", err)
	}
	if provider.signInCalls != 0 {
		t.Fatalf("demo path must not contact the provider, got %d calls", provider.signInCalls)
	}
	user := m.Snapshot().CurrentUser
	if user == nil || user.Role != domain.RoleEmployee {
		t.Fatalf("unexpected session user: %+v", user)
	}
}

func TestSessionManager_Login_LinksUnlinkedProfileByEmail(t *testing.T) {
	provider := newStubProvider()
	provider.signInFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-2", AccountID: "acct-9", Email: email}, nil
	}
	profiles := newStubProfiles()
	profiles.add(domain.UserProfile{
		ID: "p9", Email: "maria@company.com", Name: "Maria",
		Role: domain.RoleEmployee, Department: "Operations",
	})
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	if err := m.Login(context.Background(), "maria@company.com", "pw", domain.RoleEmployee); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	linked, err := profiles.FindByAuthProviderID(context.Background(), "acct-9")
	if err != nil {
		t.Fatalf("profile not linked: %v", err)
	}
	if linked.ID != "p9" {
		t.Fatalf("wrong profile linked: %+v", linked)
	}

	state := m.Snapshot()
	if state.CurrentUser == nil || state.CurrentUser.Email != "maria@company.com" {
		t.Fatalf("currentUser not resolved after linking: %+v", state.CurrentUser)
	}
	if !state.CurrentUser.Linked {
		t.Fatalf("session user should be linked")
	}
}

func TestSessionManager_Login_NoProfile_SignsOut(t *testing.T) {
	provider := newStubProvider()
	provider.signInFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-3", AccountID: "acct-void", Email: email}, nil
	}
	profiles := newStubProfiles()
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	err := m.Login(context.Background(), "ghost@company.com", "pw", domain.RoleEmployee)
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if provider.signOutCalls == 0 {
		t.Fatalf("provider session not terminated")
	}
}

func TestSessionManager_Login_LockedOut(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	limiter := &stubLimiter{locked: true}
	m := NewSessionManager(provider, profiles, &syncStamps{store: profiles}, limiter, nil, zerolog.Nop())
	m.Start(context.Background())

	err := m.Login(context.Background(), "john@company.com", "pw", domain.RoleEmployee)
	if !errors.Is(err, domain.ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}
	if provider.signInCalls != 0 {
		t.Fatalf("locked-out login must not reach the provider")
	}
}

func TestSessionManager_Login_RejectionRecordsFailure(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	limiter := &stubLimiter{}
	m := NewSessionManager(provider, profiles, &syncStamps{store: profiles}, limiter, nil, zerolog.Nop())
	m.Start(context.Background())

	_ = m.Login(context.Background(), "john@company.com", "bad", domain.RoleEmployee)
	if limiter.failures != 1 {
		t.Fatalf("expected one recorded failure, got %d", limiter.failures)
	}
}

func TestSessionManager_Signup_Success(t *testing.T) {
	provider := newStubProvider()
	provider.signUpFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-4", AccountID: "acct-new", Email: email}, nil
	}
	profiles := newStubProfiles()
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	err := m.Signup(context.Background(), ports.SignupInput{
		Email: "nina@company.com", Password: "pw123456", Name: "Nina", Role: domain.RoleGuard,
	})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	state := m.Snapshot()
	if state.CurrentUser == nil || state.CurrentUser.Email != "nina@company.com" {
		t.Fatalf("currentUser not populated: %+v", state.CurrentUser)
	}
	if state.CurrentUser.Role != domain.RoleGuard {
		t.Fatalf("unexpected role: %s", state.CurrentUser.Role)
	}
	if state.CurrentUser.Department != domain.DefaultDepartment {
		t.Fatalf("expected default department, got %q", state.CurrentUser.Department)
	}
}

func TestSessionManager_Signup_InsertFailure_Compensates(t *testing.T) {
	provider := newStubProvider()
	provider.signUpFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-5", AccountID: "acct-x", Email: email}, nil
	}
	profiles := newStubProfiles()
	profiles.add(domain.UserProfile{ID: "p1", Email: "dup@company.com", Role: domain.RoleEmployee})
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	err := m.Signup(context.Background(), ports.SignupInput{
		Email: "dup@company.com", Password: "pw123456", Name: "Dup", Role: domain.RoleEmployee,
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if provider.signOutCalls == 0 {
		t.Fatalf("expected compensating provider sign-out")
	}
}

func TestSessionManager_Logout_Idempotent(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	seedDemoRows(profiles)
	m, _ := newTestManager(provider, profiles, true)
	m.Start(context.Background())

	if err := m.Login(context.Background(), "guard@company.com", "guard123", domain.RoleGuard); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout(context.Background())
	if m.Snapshot().CurrentUser != nil {
		t.Fatalf("currentUser not cleared")
	}
	m.Logout(context.Background())
	if m.Snapshot().CurrentUser != nil {
		t.Fatalf("second logout changed state")
	}
	// Demo sessions are unlinked; the provider must not be signed out.
	if provider.signOutCalls != 0 {
		t.Fatalf("unlinked logout must not sign out the provider, got %d calls", provider.signOutCalls)
	}
}

func TestSessionManager_Logout_LinkedSignsOutProvider(t *testing.T) {
	provider := newStubProvider()
	provider.signInFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-6", AccountID: "acct-6", Email: email}, nil
	}
	profiles := newStubProfiles()
	profiles.add(domain.UserProfile{
		ID: "p6", AuthProviderID: "acct-6", Email: "tom@company.com",
		Name: "Tom", Role: domain.RoleAdmin, Department: "Management",
	})
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	if err := m.Login(context.Background(), "tom@company.com", "pw", domain.RoleAdmin); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	m.Logout(context.Background())
	if provider.signOutCalls == 0 {
		t.Fatalf("linked logout must sign out the provider")
	}
}

func TestSessionManager_Start_RestoresExistingSession(t *testing.T) {
	provider := newStubProvider()
	provider.session = &domain.Session{ID: "sess-7", AccountID: "acct-7", Email: "tom@company.com"}
	profiles := newStubProfiles()
	profiles.add(domain.UserProfile{
		ID: "p7", AuthProviderID: "acct-7", Email: "tom@company.com",
		Name: "Tom", Role: domain.RoleAdmin, Department: "Management",
	})
	m, _ := newTestManager(provider, profiles, false)

	if !m.Snapshot().IsLoading {
		t.Fatalf("expected loading before Start")
	}
	m.Start(context.Background())

	state := m.Snapshot()
	if state.IsLoading {
		t.Fatalf("loading should clear after first resolution")
	}
	if state.CurrentUser == nil || state.CurrentUser.Email != "tom@company.com" {
		t.Fatalf("session not restored: %+v", state.CurrentUser)
	}
}

func TestSessionManager_Start_NoSession(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	state := m.Snapshot()
	if state.IsLoading || state.IsAuthenticated || state.CurrentUser != nil {
		t.Fatalf("expected idle unauthenticated state, got %+v", state)
	}
}

func TestSessionManager_SessionChange_NilClearsUser(t *testing.T) {
	provider := newStubProvider()
	provider.signInFn = func(email, _ string) (*domain.Session, error) {
		return &domain.Session{ID: "sess-8", AccountID: "acct-8", Email: email}, nil
	}
	profiles := newStubProfiles()
	profiles.add(domain.UserProfile{
		ID: "p8", AuthProviderID: "acct-8", Email: "eve@company.com",
		Name: "Eve", Role: domain.RoleEmployee, Department: "Operations",
	})
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	if err := m.Login(context.Background(), "eve@company.com", "pw", domain.RoleEmployee); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// External teardown: the provider announces the session ended.
	provider.setSession(nil)
	if m.Snapshot().CurrentUser != nil {
		t.Fatalf("currentUser should clear on nil session notification")
	}
}

func TestSessionManager_SessionChange_Idempotent(t *testing.T) {
	provider := newStubProvider()
	sess := &domain.Session{ID: "sess-9", AccountID: "acct-9b", Email: "eve@company.com"}
	profiles := newStubProfiles()
	profiles.add(domain.UserProfile{
		ID: "p9b", AuthProviderID: "acct-9b", Email: "eve@company.com",
		Name: "Eve", Role: domain.RoleEmployee, Department: "Operations",
	})
	m, _ := newTestManager(provider, profiles, false)
	m.Start(context.Background())

	provider.setSession(sess)
	first := m.Snapshot().CurrentUser
	provider.setSession(sess) // re-delivery of the same session
	second := m.Snapshot().CurrentUser

	if first == nil || second == nil || first.ID != second.ID || first.Email != second.Email {
		t.Fatalf("re-delivered session resolved differently: %+v vs %+v", first, second)
	}
}

func TestSessionManager_SubscribeState(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	seedDemoRows(profiles)
	m, _ := newTestManager(provider, profiles, true)
	m.Start(context.Background())

	var mu sync.Mutex
	var states []ports.SessionState
	unsub := m.SubscribeState(func(s ports.SessionState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := m.Login(context.Background(), "admin@company.com", "admin123", domain.RoleAdmin); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	mu.Lock()
	seen := len(states)
	last := states[len(states)-1]
	mu.Unlock()
	if seen == 0 {
		t.Fatalf("no state notifications delivered")
	}
	if !last.IsAuthenticated || last.IsLoading {
		t.Fatalf("unexpected final state: %+v", last)
	}

	unsub()
	m.Logout(context.Background())
	mu.Lock()
	defer mu.Unlock()
	if len(states) != seen {
		t.Fatalf("unsubscribed handler still notified")
	}
}

func TestSessionManager_CurrentRole(t *testing.T) {
	provider := newStubProvider()
	profiles := newStubProfiles()
	seedDemoRows(profiles)
	m, _ := newTestManager(provider, profiles, true)
	m.Start(context.Background())

	if _, ok := m.CurrentRole(); ok {
		t.Fatalf("expected no role before login")
	}
	if err := m.Login(context.Background(), "guard@company.com", "guard123", domain.RoleGuard); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	role, ok := m.CurrentRole()
	if !ok || role != domain.RoleGuard {
		t.Fatalf("unexpected role: %s %v", role, ok)
	}
}
