package dataservice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/storage/local"
	"github.com/restoplan/planner-backend/internal/storage/remote"
)

var errDial = &remote.Error{Op: "set", Kind: remote.ErrUnavailable, Err: errors.New("dial tcp: connection refused")}

// fakeDocs is an in-memory DocumentStore. Watchers are notified
// synchronously after every write.
type fakeDocs struct {
	mu       sync.Mutex
	colls    map[string]map[string]map[string]any
	watchers map[int]*fakeWatcher
	nextID   int
	fail     error
	calls    int
}

type fakeWatcher struct {
	uid, coll, doc string
	onDoc          func(map[string]any, bool)
	onColl         func([]remote.Document)
	onErr          func(error)
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		colls:    map[string]map[string]map[string]any{},
		watchers: map[int]*fakeWatcher{},
	}
}

func collKey(uid, coll string) string { return uid + "/" + coll }

func (f *fakeDocs) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeDocs) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDocs) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail
}

func (f *fakeDocs) write(uid, coll, id string, data map[string]any) {
	f.mu.Lock()
	k := collKey(uid, coll)
	if f.colls[k] == nil {
		f.colls[k] = map[string]map[string]any{}
	}
	doc := map[string]any{}
	for key, v := range data {
		doc[key] = v
	}
	if _, ok := doc[remote.UpdatedAtField]; !ok {
		doc[remote.UpdatedAtField] = time.Now().UTC()
	}
	f.colls[k][id] = doc
	f.mu.Unlock()
	f.notify(uid, coll)
}

func (f *fakeDocs) Set(_ context.Context, uid, coll, docID string, data map[string]any) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.write(uid, coll, docID, data)
	return nil
}

func (f *fakeDocs) Get(_ context.Context, uid, coll, docID string) (map[string]any, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.colls[collKey(uid, coll)][docID], nil
}

func (f *fakeDocs) Add(_ context.Context, uid, coll string, data map[string]any) (string, error) {
	if err := f.begin(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("auto%03d", f.nextID)
	f.mu.Unlock()
	f.write(uid, coll, id, data)
	return id, nil
}

func (f *fakeDocs) List(_ context.Context, uid, coll string) ([]remote.Document, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	return f.snapshot(uid, coll), nil
}

func (f *fakeDocs) snapshot(uid, coll string) []remote.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := []remote.Document{}
	for id, d := range f.colls[collKey(uid, coll)] {
		docs = append(docs, remote.Document{ID: id, Data: d})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (f *fakeDocs) Delete(_ context.Context, uid, coll, docID string) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.colls[collKey(uid, coll)], docID)
	f.mu.Unlock()
	f.notify(uid, coll)
	return nil
}

func (f *fakeDocs) WatchDoc(_ context.Context, uid, coll, docID string, fn func(map[string]any, bool), onErr func(error)) func() {
	return f.watch(&fakeWatcher{uid: uid, coll: coll, doc: docID, onDoc: fn, onErr: onErr})
}

func (f *fakeDocs) WatchCollection(_ context.Context, uid, coll string, fn func([]remote.Document), onErr func(error)) func() {
	return f.watch(&fakeWatcher{uid: uid, coll: coll, onColl: fn, onErr: onErr})
}

// breakWatchers kills every listener with err the way a dropped stream does.
func (f *fakeDocs) breakWatchers(err error) {
	f.mu.Lock()
	dead := make([]*fakeWatcher, 0, len(f.watchers))
	for id, w := range f.watchers {
		dead = append(dead, w)
		delete(f.watchers, id)
	}
	f.mu.Unlock()
	for _, w := range dead {
		if w.onErr != nil {
			w.onErr(err)
		}
	}
}

func (f *fakeDocs) watcherCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

func (f *fakeDocs) stored(uid, coll string) map[string]map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]map[string]any{}
	for id, d := range f.colls[collKey(uid, coll)] {
		out[id] = d
	}
	return out
}

func (f *fakeDocs) watch(w *fakeWatcher) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.watchers[id] = w
	f.mu.Unlock()
	f.deliver(w)
	return func() {
		f.mu.Lock()
		delete(f.watchers, id)
		f.mu.Unlock()
	}
}

func (f *fakeDocs) notify(uid, coll string) {
	f.mu.Lock()
	var hit []*fakeWatcher
	for _, w := range f.watchers {
		if w.uid == uid && w.coll == coll {
			hit = append(hit, w)
		}
	}
	f.mu.Unlock()
	for _, w := range hit {
		f.deliver(w)
	}
}

func (f *fakeDocs) deliver(w *fakeWatcher) {
	if w.onColl != nil {
		w.onColl(f.snapshot(w.uid, w.coll))
		return
	}
	f.mu.Lock()
	d, ok := f.colls[collKey(w.uid, w.coll)][w.doc]
	f.mu.Unlock()
	w.onDoc(d, ok)
}

func (f *fakeDocs) Users(context.Context) ([]string, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var uids []string
	for k, docs := range f.colls {
		uid := strings.SplitN(k, "/", 2)[0]
		if len(docs) == 0 || seen[uid] {
			continue
		}
		seen[uid] = true
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids, nil
}

func (f *fakeDocs) DeleteUser(_ context.Context, uid string) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	for _, coll := range remote.UserCollections {
		delete(f.colls, collKey(uid, coll))
	}
	f.mu.Unlock()
	return nil
}

type fakeDirectory map[string]domain.UserRecord

func (d fakeDirectory) LookupUser(_ context.Context, uid string) (domain.UserRecord, error) {
	rec, ok := d[uid]
	if !ok {
		return domain.UserRecord{}, errors.New("user not found")
	}
	return rec, nil
}

// lockedClock is a settable clock safe to read from subscription goroutines.
type lockedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *lockedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *lockedClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// tickClock drives local polling from tests.
type tickClock struct{ ticks chan time.Time }

func newTickClock() *tickClock { return &tickClock{ticks: make(chan time.Time)} }

func (c *tickClock) Now() time.Time { return time.Now() }
func (c *tickClock) NewTicker(time.Duration) local.Ticker { return tickTicker{c.ticks} }

func (c *tickClock) tick(t *testing.T) {
	t.Helper()
	select {
	case c.ticks <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("no poller took the tick")
	}
}

type tickTicker struct{ c chan time.Time }

func (t tickTicker) C() <-chan time.Time { return t.c }
func (t tickTicker) Stop() {}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, local.ErrKeyNotFound }
func (brokenKV) Set(context.Context, string, []byte) error { return errors.New("quota exceeded") }
func (brokenKV) Delete(context.Context, string) error { return nil }
func (brokenKV) Keys(context.Context, string) ([]string, error) { return nil, nil }

// flakyKV fails reads while failing is set. Writes always go through.
type flakyKV struct {
	local.KV
	failing atomic.Bool
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failing.Load() {
		return nil, errors.New("i/o timeout")
	}
	return f.KV.Get(ctx, key)
}

func newFlakyKV(t *testing.T) *flakyKV {
	t.Helper()
	kv, err := local.NewFileKV(t.TempDir())
	require.NoError(t, err)
	return &flakyKV{KV: kv}
}

func newLocalStore(t *testing.T, opts ...local.Option) *local.Store {
	t.Helper()
	kv, err := local.NewFileKV(t.TempDir())
	require.NoError(t, err)
	return local.NewStore(kv, opts...)
}
