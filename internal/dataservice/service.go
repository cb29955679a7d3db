package dataservice

import (
	"context"
	"errors"
	"time"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/logging"
	"github.com/restoplan/planner-backend/internal/metrics"
	"github.com/restoplan/planner-backend/internal/storage/local"
)

// ErrMissingUser is returned by operations that need a user id.
var ErrMissingUser = errors.New("user id is required")

// UserDirectory enriches derived user records with identity details.
type UserDirectory interface {
	LookupUser(ctx context.Context, uid string) (domain.UserRecord, error)
}

// Service is the single entry point for persisted data. Each call picks a
// backend: the remote one when it is configured, currently reachable and a
// user id is given, otherwise the local store.
type Service struct {
	appID     string
	local     Backend
	remote    Backend
	directory UserDirectory
	logger    *logging.Logger
	now       func() time.Time

	remoteDocs DocumentStore
	retryAfter time.Duration
	// how often subscriptions re-check which backend should serve them
	recheck time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithRemote enables the remote backend.
func WithRemote(docs DocumentStore, retryAfter time.Duration) Option {
	return func(s *Service) {
		s.remoteDocs = docs
		s.retryAfter = retryAfter
	}
}

func WithDirectory(d UserDirectory) Option { return func(s *Service) { s.directory = d } }

func WithLogger(l *logging.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New builds a Service over the local store and, optionally, a remote
// document store.
func New(store *local.Store, appID string, opts ...Option) *Service {
	s := &Service{
		appID:  appID,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("dataservice")
	s.local = newLocalBackend(store, appID)
	if s.remoteDocs != nil {
		s.remote = newRemoteBackend(s.remoteDocs, s.retryAfter, s.now, s.logger)
	}
	s.recheck = s.retryAfter
	if s.recheck <= 0 {
		s.recheck = DefaultRetryAfter
	}
	return s
}

// RemoteEnabled reports whether a remote backend was configured.
func (s *Service) RemoteEnabled() bool { return s.remote != nil }

// BackendFor names the backend a call for uid would use right now.
func (s *Service) BackendFor(uid string) string { return s.pick(uid).Name() }

func (s *Service) pick(uid string) Backend {
	if uid == "" {
		return s.local
	}
	return s.shared()
}

func (s *Service) shared() Backend {
	if s.remote != nil && s.remote.Available() {
		return s.remote
	}
	return s.local
}

// finishWrite records metrics and folds local degradation into the result.
func (s *Service) finishWrite(b Backend, e Entity, op string, start time.Time, err error) (WriteResult, error) {
	res := WriteResult{Backend: b.Name()}
	if errors.Is(err, errDegraded) {
		metrics.ObserveDegraded(b.Name(), e.Name, op, start)
		s.logger.LogWarnf("data."+op, "%s was not persisted locally", e.Name)
		res.Degraded = true
		return res, nil
	}
	metrics.ObserveData(b.Name(), e.Name, op, start, err)
	if err != nil {
		s.logger.LogErrorf("data."+op, "%s on %s backend: %v", e.Name, b.Name(), err)
		return res, err
	}
	return res, nil
}

func (s *Service) put(ctx context.Context, uid string, e Entity, v any) (WriteResult, error) {
	b := s.pick(uid)
	start := time.Now()
	data, err := toMap(v)
	if err != nil {
		return WriteResult{Backend: b.Name()}, err
	}
	return s.finishWrite(b, e, "save", start, b.Put(ctx, uid, e, data))
}

func (s *Service) fetch(ctx context.Context, uid string, e Entity) (map[string]any, error) {
	b := s.pick(uid)
	start := time.Now()
	v, err := b.Fetch(ctx, uid, e)
	metrics.ObserveData(b.Name(), e.Name, "get", start, err)
	return v, err
}

func (s *Service) putItem(ctx context.Context, uid string, e Entity, id string, v any) (string, WriteResult, error) {
	b := s.pick(uid)
	start := time.Now()
	data, err := toMap(v)
	if err != nil {
		return "", WriteResult{Backend: b.Name()}, err
	}
	id, err = b.PutItem(ctx, uid, e, id, data)
	res, err := s.finishWrite(b, e, "save", start, err)
	return id, res, err
}

func (s *Service) fetchItem(ctx context.Context, uid string, e Entity, id string) (map[string]any, error) {
	b := s.pick(uid)
	start := time.Now()
	v, err := b.FetchItem(ctx, uid, e, id)
	metrics.ObserveData(b.Name(), e.Name, "get", start, err)
	return v, err
}

func (s *Service) items(ctx context.Context, uid string, e Entity) ([]Item, error) {
	b := s.pick(uid)
	start := time.Now()
	items, err := b.Items(ctx, uid, e)
	metrics.ObserveData(b.Name(), e.Name, "list", start, err)
	return items, err
}

func (s *Service) removeItem(ctx context.Context, uid string, e Entity, id string) (WriteResult, error) {
	b := s.pick(uid)
	start := time.Now()
	return s.finishWrite(b, e, "delete", start, b.RemoveItem(ctx, uid, e, id))
}
