package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/restoplan/planner-backend/internal/logging"
)

// DefaultPollInterval is how often subscriptions re-read their key.
const DefaultPollInterval = time.Second

// UpdatedAtField is stamped on every saved value.
const UpdatedAtField = "updatedAt"

// Store is the local fallback persistence layer. Engine failures are logged
// and reported as a false result; only Load returns read errors.
type Store struct {
	kv       KV
	clock    Clock
	interval time.Duration
	logger   *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithClock(c Clock) Option { return func(s *Store) { s.clock = c } }

func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l *logging.Logger) Option { return func(s *Store) { s.logger = l } }

// NewStore wraps a KV engine.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		clock:    SystemClock{},
		interval: DefaultPollInterval,
		logger:   logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save stamps updatedAt and writes value under key. It returns false when
// the value could not be persisted.
func (s *Store) Save(ctx context.Context, key string, value map[string]any) bool {
	record := make(map[string]any, len(value)+1)
	for k, v := range value {
		record[k] = v
	}
	record[UpdatedAtField] = s.clock.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(record)
	if err != nil {
		s.logger.LogError("local.save", fmt.Errorf("serialize %s: %w", key, err))
		return false
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.logger.LogError("local.save", err)
		return false
	}
	return true
}

// ErrReadFailed wraps engine errors returned by Load.
var ErrReadFailed = errors.New("local read failed")

// Get returns the decoded value. ok is false when the key is absent, the
// read failed or the stored bytes cannot be decoded.
func (s *Store) Get(ctx context.Context, key string) (map[string]any, bool) {
	value, ok, err := s.Load(ctx, key)
	if err != nil {
		return nil, false
	}
	return value, ok
}

// Load is Get for callers that must not mistake a failed read for an absent
// key. Undecodable bytes count as absent; engine failures are returned
// wrapped in ErrReadFailed.
func (s *Store) Load(ctx context.Context, key string) (map[string]any, bool, error) {
	data, ok, err := s.raw(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	value, ok := s.decode(key, data)
	return value, ok, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.kv.Delete(ctx, key); err != nil {
		s.logger.LogError("local.remove", err)
	}
}

// Keys lists stored keys starting with prefix.
func (s *Store) Keys(ctx context.Context, prefix string) []string {
	keys, err := s.kv.Keys(ctx, prefix)
	if err != nil {
		s.logger.LogError("local.keys", err)
		return nil
	}
	return keys
}

func (s *Store) raw(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.LogError("local.get", err)
		return nil, false, fmt.Errorf("%w: %s: %w", ErrReadFailed, key, err)
	}
	return data, true, nil
}

func (s *Store) decode(key string, data []byte) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.LogError("local.get", fmt.Errorf("decode %s: %w", key, err))
		return nil, false
	}
	return out, true
}
