package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// UpdatedAtField defaults to the server timestamp on every write.
const UpdatedAtField = "updatedAt"

// Document is one stored document and its id.
type Document struct {
	ID   string
	Data map[string]any
}

// Client stores per-user documents in Firestore under
// artifacts/{appId}/users/{uid}.
type Client struct {
	fs    *firestore.Client
	appID string
}

// NewClient wraps an initialized Firestore client.
func NewClient(fs *firestore.Client, appID string) *Client {
	return &Client{fs: fs, appID: appID}
}

// AppID returns the application namespace.
func (c *Client) AppID() string { return c.appID }

func (c *Client) collection(uid, collection string) *firestore.CollectionRef {
	return c.fs.Collection(CollectionPath(c.appID, uid, collection))
}

func (c *Client) doc(uid, collection, docID string) *firestore.DocumentRef {
	return c.collection(uid, collection).Doc(docID)
}

func stamped(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if _, ok := out[UpdatedAtField]; !ok {
		out[UpdatedAtField] = firestore.ServerTimestamp
	}
	return out
}

// Set overwrites the document with data. updatedAt is the server timestamp
// unless data already carries one.
func (c *Client) Set(ctx context.Context, uid, collection, docID string, data map[string]any) error {
	if _, err := c.doc(uid, collection, docID).Set(ctx, stamped(data)); err != nil {
		return classify("set "+collection, err)
	}
	return nil
}

// Get returns the document data, or nil when the document does not exist.
func (c *Client) Get(ctx context.Context, uid, collection, docID string) (map[string]any, error) {
	snap, err := c.doc(uid, collection, docID).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get "+collection, err)
	}
	return snap.Data(), nil
}

// Add stores data under a server-assigned id and returns it.
func (c *Client) Add(ctx context.Context, uid, collection string, data map[string]any) (string, error) {
	ref, _, err := c.collection(uid, collection).Add(ctx, stamped(data))
	if err != nil {
		return "", classify("add "+collection, err)
	}
	return ref.ID, nil
}

// List returns every document in the collection.
func (c *Client) List(ctx context.Context, uid, collection string) ([]Document, error) {
	snaps, err := c.collection(uid, collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, classify("list "+collection, err)
	}
	return toDocuments(snaps), nil
}

// Delete removes a document. Deleting a missing document succeeds.
func (c *Client) Delete(ctx context.Context, uid, collection, docID string) error {
	if _, err := c.doc(uid, collection, docID).Delete(ctx); err != nil && !isNotFound(err) {
		return classify("delete "+collection, err)
	}
	return nil
}

// WatchDoc calls fn with the document's current state and again on every
// change until the returned stop function is called. onErr, if set, receives
// a classified error when the listener fails.
func (c *Client) WatchDoc(ctx context.Context, uid, collection, docID string, fn func(map[string]any, bool), onErr func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	it := c.doc(uid, collection, docID).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				report(ctx, "watch "+collection, err, onErr)
				return
			}
			if snap.Exists() {
				fn(snap.Data(), true)
			} else {
				fn(nil, false)
			}
		}
	}()
	return stopOnce(cancel)
}

// WatchCollection calls fn with the full collection on every change. Each
// call carries a complete replacement, never a delta.
func (c *Client) WatchCollection(ctx context.Context, uid, collection string, fn func([]Document), onErr func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	it := c.collection(uid, collection).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				report(ctx, "watch "+collection, err, onErr)
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				report(ctx, "watch "+collection, err, onErr)
				return
			}
			fn(toDocuments(snaps))
		}
	}()
	return stopOnce(cancel)
}

// Users lists the uids that own data in this application, including users
// whose document only exists as the parent of subcollections.
func (c *Client) Users(ctx context.Context) ([]string, error) {
	it := c.fs.Collection(UsersPath(c.appID)).DocumentRefs(ctx)
	var uids []string
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify("list users", err)
		}
		uids = append(uids, ref.ID)
	}
	return uids, nil
}

// DeleteUser removes every document the user owns plus the user document.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	var refs []*firestore.DocumentRef
	for _, coll := range UserCollections {
		collRefs, err := c.collection(uid, coll).DocumentRefs(ctx).GetAll()
		if err != nil {
			return classify("delete user", err)
		}
		refs = append(refs, collRefs...)
	}
	refs = append(refs, c.fs.Doc(UserPath(c.appID, uid)))

	bw := c.fs.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return classify("delete user", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil && !isNotFound(err) {
			return classify("delete user", fmt.Errorf("uid %s: %w", uid, err))
		}
	}
	return nil
}

// Close releases the Firestore connection.
func (c *Client) Close() error {
	return c.fs.Close()
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		docs = append(docs, Document{ID: s.Ref.ID, Data: s.Data()})
	}
	return docs
}

func report(ctx context.Context, op string, err error, onErr func(error)) {
	if ctx.Err() != nil || errors.Is(err, iterator.Done) || onErr == nil {
		return
	}
	onErr(classify(op, err))
}

func stopOnce(cancel context.CancelFunc) func() {
	var once sync.Once
	return func() { once.Do(cancel) }
}
