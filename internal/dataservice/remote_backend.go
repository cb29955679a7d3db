package dataservice

import (
	"context"
	"sync"
	"time"

	"github.com/restoplan/planner-backend/internal/logging"
	"github.com/restoplan/planner-backend/internal/storage/remote"
)

// DefaultRetryAfter is how long the remote backend stays out of rotation
// after a network failure.
const DefaultRetryAfter = 30 * time.Second

// DocumentStore is the remote document API the remote backend drives.
// *remote.Client implements it.
type DocumentStore interface {
	Set(ctx context.Context, uid, collection, docID string, data map[string]any) error
	Get(ctx context.Context, uid, collection, docID string) (map[string]any, error)
	Add(ctx context.Context, uid, collection string, data map[string]any) (string, error)
	List(ctx context.Context, uid, collection string) ([]remote.Document, error)
	Delete(ctx context.Context, uid, collection, docID string) error
	WatchDoc(ctx context.Context, uid, collection, docID string, fn func(map[string]any, bool), onErr func(error)) func()
	WatchCollection(ctx context.Context, uid, collection string, fn func([]remote.Document), onErr func(error)) func()
	Users(ctx context.Context) ([]string, error)
	DeleteUser(ctx context.Context, uid string) error
}

type remoteBackend struct {
	docs       DocumentStore
	retryAfter time.Duration
	now        func() time.Time
	logger     *logging.Logger

	mu        sync.Mutex
	downUntil time.Time
}

func newRemoteBackend(docs DocumentStore, retryAfter time.Duration, now func() time.Time, logger *logging.Logger) *remoteBackend {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &remoteBackend{docs: docs, retryAfter: retryAfter, now: now, logger: logger}
}

func (b *remoteBackend) Name() string { return BackendRemote }

// Available is false for retryAfter after the last network failure.
func (b *remoteBackend) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.now().Before(b.downUntil)
}

func (b *remoteBackend) observe(err error) error {
	if remote.IsNetwork(err) {
		b.mu.Lock()
		b.downUntil = b.now().Add(b.retryAfter)
		b.mu.Unlock()
		b.logger.LogWarnf("remote.unavailable", "remote backend unreachable, using local store for %s: %v", b.retryAfter, err)
	}
	return err
}

func (b *remoteBackend) Put(ctx context.Context, uid string, e Entity, data map[string]any) error {
	return b.observe(b.docs.Set(ctx, uid, e.Collection, e.Doc, data))
}

func (b *remoteBackend) Fetch(ctx context.Context, uid string, e Entity) (map[string]any, error) {
	v, err := b.docs.Get(ctx, uid, e.Collection, e.Doc)
	return v, b.observe(err)
}

func (b *remoteBackend) WatchSlot(ctx context.Context, uid string, e Entity, fn func(map[string]any), onErr func(error)) func() {
	return b.docs.WatchDoc(ctx, uid, e.Collection, e.Doc, func(v map[string]any, ok bool) {
		if !ok {
			v = nil
		}
		fn(v)
	}, b.watchFailed(onErr))
}

func (b *remoteBackend) PutItem(ctx context.Context, uid string, e Entity, id string, data map[string]any) (string, error) {
	if id == "" {
		newID, err := b.docs.Add(ctx, uid, e.Collection, data)
		return newID, b.observe(err)
	}
	doc := make(map[string]any, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc["id"] = id
	return id, b.observe(b.docs.Set(ctx, uid, e.Collection, id, doc))
}

func (b *remoteBackend) FetchItem(ctx context.Context, uid string, e Entity, id string) (map[string]any, error) {
	v, err := b.docs.Get(ctx, uid, e.Collection, id)
	return v, b.observe(err)
}

func (b *remoteBackend) Items(ctx context.Context, uid string, e Entity) ([]Item, error) {
	docs, err := b.docs.List(ctx, uid, e.Collection)
	if err != nil {
		return nil, b.observe(err)
	}
	return toItems(docs), nil
}

func (b *remoteBackend) RemoveItem(ctx context.Context, uid string, e Entity, id string) error {
	return b.observe(b.docs.Delete(ctx, uid, e.Collection, id))
}

func (b *remoteBackend) WatchItems(ctx context.Context, uid string, e Entity, fn func([]Item), onErr func(error)) func() {
	return b.docs.WatchCollection(ctx, uid, e.Collection, func(docs []remote.Document) {
		fn(toItems(docs))
	}, b.watchFailed(onErr))
}

func (b *remoteBackend) Users(ctx context.Context) ([]string, error) {
	uids, err := b.docs.Users(ctx)
	return uids, b.observe(err)
}

func (b *remoteBackend) Purge(ctx context.Context, uid string) error {
	return b.observe(b.docs.DeleteUser(ctx, uid))
}

// watchFailed logs a dead listener and takes the backend out of rotation on
// network errors before passing the error on.
func (b *remoteBackend) watchFailed(next func(error)) func(error) {
	return func(err error) {
		b.logger.LogError("remote.watch", b.observe(err))
		if next != nil {
			next(err)
		}
	}
}

func toItems(docs []remote.Document) []Item {
	items := make([]Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, Item{ID: d.ID, Data: d.Data})
	}
	return items
}
