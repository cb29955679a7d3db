package session

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/logging"
	"github.com/restoplan/planner-backend/internal/metrics"
	"github.com/restoplan/planner-backend/internal/store"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	sweepSpec          = "@every 1m"
)

// Data is what a session needs from the data access layer.
// *dataservice.Service implements it.
type Data interface {
	store.DataService
	identity.Migrator
}

// SignInFunc runs one sign-in flow against a fresh identity service.
type SignInFunc func(ctx context.Context, svc *identity.Service) (*identity.User, error)

// Session is one signed-in user's identity session and application store.
type Session struct {
	Identity *identity.Service
	Store    *store.Store

	uid    string
	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) UID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Store.Close()
	s.cancel()
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Manager keeps one Session per uid, evicts idle ones and autosaves dirty
// ones on a schedule.
type Manager struct {
	provider  identity.Provider
	data      Data
	logger    *logging.Logger
	now       func() time.Time
	idle      time.Duration
	autosave  time.Duration
	storeOpts []store.Option

	mu       sync.Mutex
	sessions map[string]*Session
	limiters map[string]*limiterEntry

	cron *cron.Cron
}

type Option func(*Manager)

func WithLogger(l *logging.Logger) Option { return func(m *Manager) { m.logger = l } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithIdleTimeout sets how long an untouched session stays open.
func WithIdleTimeout(d time.Duration) Option { return func(m *Manager) { m.idle = d } }

// WithAutosave saves dirty sessions every d. Zero disables autosave.
func WithAutosave(d time.Duration) Option { return func(m *Manager) { m.autosave = d } }

// WithStoreOptions is applied to every store the manager creates.
func WithStoreOptions(opts ...store.Option) Option {
	return func(m *Manager) { m.storeOpts = append(m.storeOpts, opts...) }
}

func NewManager(provider identity.Provider, data Data, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		data:     data,
		logger:   logging.Nop(),
		now:      time.Now,
		idle:     DefaultIdleTimeout,
		sessions: make(map[string]*Session),
		limiters: make(map[string]*limiterEntry),
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.Named("session")
	return m
}

// Start schedules the idle sweep and, when enabled, autosave.
func (m *Manager) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(sweepSpec, func() { m.Sweep(context.Background()) }); err != nil {
		return err
	}
	if m.autosave > 0 {
		spec := "@every " + m.autosave.String()
		if _, err := c.AddFunc(spec, func() { m.Autosave(context.Background()) }); err != nil {
			return err
		}
	}
	c.Start()
	m.cron = c
	m.logger.LogInfof("start", "idle timeout %s, autosave %s", m.idle, m.autosave)
	return nil
}

// Stop halts scheduled jobs, saves dirty sessions and closes them all.
func (m *Manager) Stop(ctx context.Context) {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.Autosave(ctx)

	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for uid, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, uid)
	}
	metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

// Open returns the session for u, creating and loading it on first use.
// u must already be verified.
func (m *Manager) Open(u identity.User) *Session {
	if s, ok := m.Get(u.UID); ok {
		return s
	}
	svc := m.newIdentity(u.UID)
	svc.Observe(u)
	return m.adopt(svc, u.UID)
}

// Authenticate runs signIn on a fresh identity service and opens the
// resulting user's session. Attempts are throttled per key.
func (m *Manager) Authenticate(ctx context.Context, key string, signIn SignInFunc) (*Session, error) {
	svc := m.newIdentity(key)
	u, err := signIn(ctx, svc)
	if err != nil {
		return nil, err
	}
	if s, ok := m.Get(u.UID); ok {
		s.Identity.Observe(*u)
		return s, nil
	}
	return m.adopt(svc, u.UID), nil
}

func (m *Manager) newIdentity(key string) *identity.Service {
	opts := []identity.Option{
		identity.WithMigrator(m.data),
		identity.WithLogger(m.logger),
	}
	if m.provider.Remote() {
		opts = append(opts, identity.WithLimiter(m.limiterFor(key)))
	}
	return identity.NewService(m.provider, opts...)
}

func (m *Manager) limiterFor(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(identity.DefaultSignInInterval), identity.DefaultSignInBurst)}
		m.limiters[key] = e
	}
	e.lastUsed = m.now()
	return e.limiter
}

// adopt starts a store on svc. The load runs outside the manager lock; if
// another request won the race its session is kept and this one discarded.
func (m *Manager) adopt(svc *identity.Service, uid string) *Session {
	sctx, cancel := context.WithCancel(context.Background())
	st := store.New(m.data, svc, append([]store.Option{store.WithLogger(m.logger)}, m.storeOpts...)...)
	st.Start(sctx)
	s := &Session{Identity: svc, Store: st, uid: uid, cancel: cancel, lastSeen: m.now()}

	m.mu.Lock()
	if existing, ok := m.sessions[uid]; ok {
		m.mu.Unlock()
		s.close()
		existing.touch(m.now())
		return existing
	}
	m.sessions[uid] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.logger.LogInfof("open", "session opened for uid=%s", uid)
	return s
}

// Get returns the open session for uid and marks it as used.
func (m *Manager) Get(uid string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[uid]
	m.mu.Unlock()
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// Rekey moves a session whose identity changed uid, as after linking an
// account that the provider re-issued.
func (m *Manager) Rekey(oldUID, newUID string) {
	if oldUID == newUID {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[oldUID]
	if !ok {
		return
	}
	delete(m.sessions, oldUID)
	s.mu.Lock()
	s.uid = newUID
	s.mu.Unlock()
	if prev, clash := m.sessions[newUID]; clash {
		go prev.close()
	}
	m.sessions[newUID] = s
}

// Close drops the session for uid without saving.
func (m *Manager) Close(uid string) {
	m.mu.Lock()
	s, ok := m.sessions[uid]
	delete(m.sessions, uid)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	if ok {
		s.close()
		m.logger.LogInfof("close", "session closed for uid=%s", uid)
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout, saving dirty
// ones first, and forgets unused sign-in limiters.
func (m *Manager) Sweep(ctx context.Context) {
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	var idle []*Session
	for uid, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, uid)
		}
	}
	for key, e := range m.limiters {
		if e.lastUsed.Before(cutoff) {
			delete(m.limiters, key)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range idle {
		m.save(ctx, s)
		s.close()
		m.logger.LogInfof("sweep", "evicted idle session uid=%s", s.UID())
	}
}

// Autosave saves the active draft of every dirty session.
func (m *Manager) Autosave(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.save(ctx, s)
	}
}

func (m *Manager) save(ctx context.Context, s *Session) {
	if !s.Store.Dirty() {
		return
	}
	if err := s.Store.SaveData(ctx); err != nil {
		m.logger.LogWarnf("autosave", "uid=%s: %v", s.UID(), err)
	}
}
