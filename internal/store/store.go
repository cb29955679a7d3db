package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/restoplan/planner-backend/internal/dataservice"
	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/logging"
)

// DataService is the persistence surface the store reads and writes through.
// *dataservice.Service implements it.
type DataService interface {
	GetDrafts(ctx context.Context, uid string) ([]domain.Draft, error)
	SaveDraft(ctx context.Context, uid string, d domain.Draft) (dataservice.WriteResult, error)
	DeleteDraft(ctx context.Context, uid, id string) (dataservice.WriteResult, error)
	SubscribeDrafts(ctx context.Context, uid string, fn func([]domain.Draft)) func()
	GetDraftsMetadata(ctx context.Context, uid string) (*domain.DraftsMetadata, error)
	SaveDraftsMetadata(ctx context.Context, uid string, m domain.DraftsMetadata) (dataservice.WriteResult, error)
	GetProgress(ctx context.Context, uid string) (*domain.Progress, error)
	SaveProgress(ctx context.Context, uid string, p domain.Progress) (dataservice.WriteResult, error)
	GetAllUsers(ctx context.Context) ([]domain.UserRecord, error)
	DeleteUserAccount(ctx context.Context, uid string) error
}

// AuthSource reports sign-in and sign-out. *identity.Service implements it.
type AuthSource interface {
	OnAuthStateChanged(fn identity.AuthStateFunc) func()
}

// Store owns the state of one user session. All mutations go through
// Reduce; persisting actions call the data service outside the lock and
// dispatch their outcome.
type Store struct {
	data   DataService
	auth   AuthSource
	logger *logging.Logger
	now    func() time.Time
	newID  func(time.Time) string

	mu        sync.Mutex
	state     State
	version   uint64
	editSeq   uint64
	dirty     map[string]uint64 // draft id -> edit sequence of the last unsaved edit
	persisted map[string]bool
	loadedUID string
	observers map[int]func(State)
	nextObs   int

	authMu      sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	unsubAuth   func()
	unsubDrafts func()

	saves singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *logging.Logger) Option { return func(s *Store) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithIDGenerator overrides draft id allocation.
func WithIDGenerator(fn func(time.Time) string) Option { return func(s *Store) { s.newID = fn } }

func New(data DataService, auth AuthSource, opts ...Option) *Store {
	s := &Store{
		data:      data,
		auth:      auth,
		logger:    logging.Nop(),
		now:       time.Now,
		newID:     domain.NewDraftID,
		state:     InitialState(),
		dirty:     make(map[string]uint64),
		persisted: make(map[string]bool),
		observers: make(map[int]func(State)),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("store")
	return s
}

// Start attaches the store to its auth source. The current identity, if
// any, is loaded before Start returns. ctx bounds loads and subscriptions.
func (s *Store) Start(ctx context.Context) {
	s.authMu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.authMu.Unlock()
	unsub := s.auth.OnAuthStateChanged(s.onAuthStateChanged)
	s.authMu.Lock()
	s.unsubAuth = unsub
	s.authMu.Unlock()
}

// Close detaches from the auth source and stops the drafts subscription.
func (s *Store) Close() {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	if s.unsubAuth != nil {
		s.unsubAuth()
		s.unsubAuth = nil
	}
	s.stopDraftsLocked()
	if s.cancel != nil {
		s.cancel()
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Version increases on every dispatched action.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dirty reports whether any draft has edits that were not saved.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0
}

// Subscribe registers fn to receive a copy of the state after every
// dispatch. The returned function removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Dispatch applies a to the state and notifies observers.
func (s *Store) Dispatch(a Action) {
	s.mutate(func(State) (Action, string) { return a, "" })
}

// mutate builds an action from the current state and reduces it under the
// lock. build also names the draft the action edits, which is then marked
// dirty; a nil action leaves the state untouched.
func (s *Store) mutate(build func(State) (Action, string)) State {
	s.mu.Lock()
	a, edited := build(s.state)
	if a == nil {
		cur := s.state
		s.mu.Unlock()
		return cur
	}
	s.state = Reduce(s.state, a)
	s.version++
	if edited != "" {
		s.editSeq++
		s.dirty[edited] = s.editSeq
	}
	next, fns := s.state, s.observersLocked()
	s.mu.Unlock()

	s.notify(next, fns)
	return next
}

func (s *Store) observersLocked() []func(State) {
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	return fns
}

func (s *Store) notify(next State, fns []func(State)) {
	for _, fn := range fns {
		fn(next.Clone())
	}
}

// current returns the live state without copying. Reduce never mutates a
// state in place, so the result is safe to read but must not be modified.
func (s *Store) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) show(kind MessageKind, title, text string) {
	s.Dispatch(ShowMessage{Kind: kind, Title: title, Text: text})
}

func (s *Store) stopDraftsLocked() {
	if s.unsubDrafts != nil {
		s.unsubDrafts()
		s.unsubDrafts = nil
	}
}
