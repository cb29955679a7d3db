package local

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV engines when a key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KV is the on-device key/value engine behind Store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
