package dataservice

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/restoplan/planner-backend/internal/storage/local"
)

// itemsField holds a collection entity's documents inside one local value.
const itemsField = "items"

type localBackend struct {
	store *local.Store
	appID string

	// serializes read-modify-write of collection envelopes
	mu sync.Mutex
}

func newLocalBackend(store *local.Store, appID string) *localBackend {
	return &localBackend{store: store, appID: appID}
}

func (b *localBackend) Name() string { return BackendLocal }
func (b *localBackend) Available() bool { return true }

func (b *localBackend) key(uid string, e Entity) string {
	return local.Key(e.Name, b.appID, uid)
}

func (b *localBackend) Put(ctx context.Context, uid string, e Entity, data map[string]any) error {
	if !b.store.Save(ctx, b.key(uid, e), data) {
		return errDegraded
	}
	return nil
}

func (b *localBackend) Fetch(ctx context.Context, uid string, e Entity) (map[string]any, error) {
	v, ok, err := b.store.Load(ctx, b.key(uid, e))
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

// Local subscriptions skip failed reads and never die, so onErr is unused.
func (b *localBackend) WatchSlot(ctx context.Context, uid string, e Entity, fn func(map[string]any), _ func(error)) func() {
	sub := b.store.Watch(ctx, b.key(uid, e), func(v map[string]any, ok bool) {
		if !ok {
			v = nil
		}
		fn(v)
	})
	return sub.Stop
}

func (b *localBackend) PutItem(ctx context.Context, uid string, e Entity, id string, data map[string]any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	doc := make(map[string]any, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc["id"] = id

	// Writing the envelope without the stored items would drop them.
	items, err := b.load(ctx, uid, e)
	if err != nil {
		return id, errDegraded
	}
	replaced := false
	for i, it := range items {
		if it.ID == id {
			items[i].Data = doc
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, Item{ID: id, Data: doc})
	}

	if !b.store.Save(ctx, b.key(uid, e), envelope(items)) {
		return id, errDegraded
	}
	return id, nil
}

func (b *localBackend) FetchItem(ctx context.Context, uid string, e Entity, id string) (map[string]any, error) {
	items, err := b.load(ctx, uid, e)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.ID == id {
			return it.Data, nil
		}
	}
	return nil, nil
}

func (b *localBackend) Items(ctx context.Context, uid string, e Entity) ([]Item, error) {
	return b.load(ctx, uid, e)
}

func (b *localBackend) RemoveItem(ctx context.Context, uid string, e Entity, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	items, err := b.load(ctx, uid, e)
	if err != nil {
		return errDegraded
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	if !b.store.Save(ctx, b.key(uid, e), envelope(kept)) {
		return errDegraded
	}
	return nil
}

func (b *localBackend) WatchItems(ctx context.Context, uid string, e Entity, fn func([]Item), _ func(error)) func() {
	sub := b.store.Watch(ctx, b.key(uid, e), func(v map[string]any, ok bool) {
		if !ok {
			fn(nil)
			return
		}
		fn(unwrapItems(v))
	})
	return sub.Stop
}

// Users lists uids with a drafts value in this application's keyspace.
func (b *localBackend) Users(ctx context.Context) ([]string, error) {
	var uids []string
	for _, k := range b.store.Keys(ctx, local.Prefix(local.EntityDrafts, b.appID)) {
		if uid, ok := local.UserFromKey(local.EntityDrafts, b.appID, k); ok && uid != local.AnonymousUser {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func (b *localBackend) Purge(ctx context.Context, uid string) error {
	for _, entity := range local.Entities {
		b.store.Remove(ctx, local.Key(entity, b.appID, uid))
	}
	return nil
}

func (b *localBackend) load(ctx context.Context, uid string, e Entity) ([]Item, error) {
	v, ok, err := b.store.Load(ctx, b.key(uid, e))
	if err != nil || !ok {
		return nil, err
	}
	return unwrapItems(v), nil
}

func envelope(items []Item) map[string]any {
	docs := make([]any, 0, len(items))
	for _, it := range items {
		docs = append(docs, it.Data)
	}
	return map[string]any{itemsField: docs}
}

func unwrapItems(v map[string]any) []Item {
	raw, _ := v[itemsField].([]any)
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		doc, ok := r.(map[string]any)
		if !ok {
			continue
		}
		id, _ := doc["id"].(string)
		if id == "" {
			continue
		}
		items = append(items, Item{ID: id, Data: doc})
	}
	return items
}
