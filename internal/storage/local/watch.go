package local

import (
	"bytes"
	"context"
	"sync"
)

// WatchFunc receives the current value of a watched key. ok is false when
// the key is absent.
type WatchFunc func(value map[string]any, ok bool)

// Subscription is a restartable polling task bound to one key.
type Subscription struct {
	store *Store
	key   string
	fn    WatchFunc

	mu     sync.Mutex
	last   []byte
	seen   bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Watch reports the current value of key immediately, then polls and
// reports again whenever the serialized value differs from the last one
// reported. Failed reads are skipped, never reported as an absent key. Cancelling ctx has the same effect as Stop.
func (s *Store) Watch(ctx context.Context, key string, fn WatchFunc) *Subscription {
	sub := &Subscription{store: s, key: key, fn: fn}
	sub.poll(ctx)
	sub.start(ctx)
	return sub
}

// Stop cancels polling. It is safe to call more than once.
func (sub *Subscription) Stop() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.cancel != nil {
		sub.cancel()
		sub.cancel = nil
	}
}

// Restart resumes polling after Stop. Changes made while stopped are
// reported on the next tick.
func (sub *Subscription) Restart(ctx context.Context) {
	sub.start(ctx)
}

// Active reports whether the polling task is running.
func (sub *Subscription) Active() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.cancel != nil
}

// Done is closed when the current polling task exits.
func (sub *Subscription) Done() <-chan struct{} {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.done
}

func (sub *Subscription) start(parent context.Context) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	sub.cancel = cancel
	sub.done = done

	ticker := sub.store.clock.NewTicker(sub.store.interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if ctx.Err() != nil {
					return
				}
				sub.poll(ctx)
			}
		}
	}()
}

func (sub *Subscription) poll(ctx context.Context) {
	data, present, err := sub.store.raw(ctx, sub.key)
	if err != nil {
		// Keep the last reported value; the next tick retries.
		return
	}

	sub.mu.Lock()
	if sub.seen && bytes.Equal(data, sub.last) {
		sub.mu.Unlock()
		return
	}
	sub.seen = true
	sub.last = data
	sub.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if !present {
		sub.fn(nil, false)
		return
	}
	value, ok := sub.store.decode(sub.key, data)
	sub.fn(value, ok)
}
