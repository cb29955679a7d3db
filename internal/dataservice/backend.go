package dataservice

import (
	"context"
	"errors"

	"github.com/restoplan/planner-backend/internal/storage/local"
	"github.com/restoplan/planner-backend/internal/storage/remote"
)

// Backend names reported in WriteResult and metrics.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// errDegraded is returned by the local backend when a write could not be
// persisted. Service turns it into WriteResult.Degraded.
var errDegraded = errors.New("local write degraded")

// Entity describes where one kind of data lives in each backend. Doc is
// empty for collection entities.
type Entity struct {
	Name       string
	Collection string
	Doc        string
}

var (
	EntityBusinessPlan   = Entity{local.EntityBusinessPlan, remote.CollectionBusinessPlan, remote.DocBusinessPlan}
	EntityProgress       = Entity{local.EntityProgress, remote.CollectionProgress, remote.DocProgress}
	EntityVendors        = Entity{local.EntityVendors, remote.CollectionVendors, ""}
	EntityDrafts         = Entity{local.EntityDrafts, remote.CollectionDrafts, ""}
	EntityDraftsMetadata = Entity{local.EntityDraftsMetadata, remote.CollectionMetadata, remote.DocDraftsMetadata}
)

// Item is one document of a collection entity.
type Item struct {
	ID   string
	Data map[string]any
}

// WriteResult tells the caller where a write landed. Degraded is set when
// the local store could not persist the value; the in-memory copy is then
// the only one.
type WriteResult struct {
	Backend  string `json:"backend"`
	Degraded bool   `json:"degraded"`
}

// Backend is one storage strategy. Fetch and FetchItem return nil for
// absent documents. Watch functions fire once with the current state and
// again on every change until the returned function is called; onErr, if
// set, is called when the listener dies and will deliver nothing more.
type Backend interface {
	Name() string
	Available() bool

	Put(ctx context.Context, uid string, e Entity, data map[string]any) error
	Fetch(ctx context.Context, uid string, e Entity) (map[string]any, error)
	WatchSlot(ctx context.Context, uid string, e Entity, fn func(map[string]any), onErr func(error)) func()

	PutItem(ctx context.Context, uid string, e Entity, id string, data map[string]any) (string, error)
	FetchItem(ctx context.Context, uid string, e Entity, id string) (map[string]any, error)
	Items(ctx context.Context, uid string, e Entity) ([]Item, error)
	RemoveItem(ctx context.Context, uid string, e Entity, id string) error
	WatchItems(ctx context.Context, uid string, e Entity, fn func([]Item), onErr func(error)) func()

	Users(ctx context.Context) ([]string, error)
	Purge(ctx context.Context, uid string) error
}
