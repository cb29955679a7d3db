package identity

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/restoplan/planner-backend/internal/logging"
	"github.com/restoplan/planner-backend/internal/metrics"
)

// Default sign-in throttle for remote providers: a burst of 5, then one
// attempt every 2 seconds.
const (
	DefaultSignInBurst    = 5
	DefaultSignInInterval = 2 * time.Second
)

// Migrator copies stored data between user namespaces.
type Migrator interface {
	MigrateUserData(ctx context.Context, fromUID, toUID string) error
}

// AuthStateFunc receives the current user, or nil when signed out.
type AuthStateFunc func(*User)

// Service tracks one identity session and notifies listeners on every
// sign-in and sign-out.
type Service struct {
	provider Provider
	limiter  *rate.Limiter
	migrator Migrator
	logger   *logging.Logger

	mu        sync.Mutex
	current   *User
	listeners map[int]AuthStateFunc
	nextID    int
}

// Option configures a Service.
type Option func(*Service)

// WithLimiter overrides the sign-in throttle. A nil limiter disables it.
func WithLimiter(l *rate.Limiter) Option { return func(s *Service) { s.limiter = l } }

func WithMigrator(m Migrator) Option { return func(s *Service) { s.migrator = m } }

func WithLogger(l *logging.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates a signed-out session. Remote providers are throttled
// by default; the offline provider never is.
func NewService(p Provider, opts ...Option) *Service {
	s := &Service{
		provider:  p,
		logger:    logging.Nop(),
		listeners: make(map[int]AuthStateFunc),
	}
	if p.Remote() {
		s.limiter = rate.NewLimiter(rate.Every(DefaultSignInInterval), DefaultSignInBurst)
	}
	for _, o := range opts {
		o(s)
	}
	if !p.Remote() {
		s.limiter = nil
	}
	s.logger = s.logger.Named("identity")
	return s
}

// Offline reports whether the service runs without a remote provider.
func (s *Service) Offline() bool { return !s.provider.Remote() }

func (s *Service) SignInWithEmail(ctx context.Context, email, password string) (*User, error) {
	return s.signIn("email", func() (*User, error) {
		return s.provider.SignInWithEmail(ctx, email, password)
	})
}

func (s *Service) SignUpWithEmail(ctx context.Context, email, password string) (*User, error) {
	return s.signIn("sign_up", func() (*User, error) {
		return s.provider.SignUpWithEmail(ctx, email, password)
	})
}

// SignInWithGoogle exchanges a Google ID token.
func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (*User, error) {
	return s.signIn("google", func() (*User, error) {
		return s.provider.SignInWithIdP(ctx, ProviderGoogle, idToken)
	})
}

func (s *Service) SignInAnonymously(ctx context.Context) (*User, error) {
	return s.signIn("anonymous", func() (*User, error) {
		return s.provider.SignInAnonymously(ctx)
	})
}

func (s *Service) SignInWithCustomToken(ctx context.Context, token string) (*User, error) {
	return s.signIn("custom_token", func() (*User, error) {
		return s.provider.SignInWithCustomToken(ctx, token)
	})
}

func (s *Service) signIn(method string, fn func() (*User, error)) (*User, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		err := &AuthError{Kind: ErrRateLimited, Code: "CLIENT_THROTTLED"}
		metrics.ObserveSignIn(method, err)
		s.logger.LogWarnf("sign_in", "%s attempt throttled", method)
		return nil, err
	}

	u, err := fn()
	metrics.ObserveSignIn(method, err)
	if err != nil {
		s.logger.LogWarnf("sign_in", "%s failed: %v", method, err)
		return nil, err
	}
	s.logger.LogInfof("sign_in", "%s sign-in for uid=%s", method, u.UID)
	s.setUser(u)
	return u.clone(), nil
}

// Observe adopts an identity that was verified elsewhere, such as a
// Firebase ID token checked by the HTTP middleware.
func (s *Service) Observe(u User) {
	s.setUser(&u)
}

// UpdateProfile changes the current user's display name.
func (s *Service) UpdateProfile(ctx context.Context, displayName string) (*User, error) {
	cur := s.CurrentUser()
	if cur == nil {
		return nil, ErrNotSignedIn
	}
	u, err := s.provider.UpdateProfile(ctx, cur, displayName)
	if err != nil {
		return nil, err
	}
	s.setUser(u)
	return u.clone(), nil
}

// LinkWithEmailAndPassword upgrades the current identity to a permanent
// email account. The uid is preserved; stored data is then migrated from
// the previous uid, which is a no-op unless the provider issued a new one.
// Migration failures are logged, not returned.
func (s *Service) LinkWithEmailAndPassword(ctx context.Context, email, password string) (*User, error) {
	cur := s.CurrentUser()
	if cur == nil {
		return nil, ErrNotSignedIn
	}
	u, err := s.provider.LinkWithEmail(ctx, cur, email, password)
	if err != nil {
		return nil, err
	}
	if s.migrator != nil {
		if err := s.migrator.MigrateUserData(ctx, cur.UID, u.UID); err != nil {
			s.logger.LogErrorf("link", "migrate %s to %s: %v", cur.UID, u.UID, err)
		}
	}
	s.logger.LogInfof("link", "linked email to uid=%s", u.UID)
	s.setUser(u)
	return u.clone(), nil
}

// SignOut clears the current identity.
func (s *Service) SignOut() {
	s.setUser(nil)
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Service) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// OnAuthStateChanged registers fn, calls it right away with the current
// identity and again after every sign-in or sign-out. The returned function
// removes the listener.
func (s *Service) OnAuthStateChanged(fn AuthStateFunc) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	cur := s.current.clone()
	s.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) setUser(u *User) {
	s.mu.Lock()
	s.current = u.clone()
	fns := make([]AuthStateFunc, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u.clone())
	}
}
