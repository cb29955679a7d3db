package dataservice

import (
	"context"
	"time"
)

// watchFunc subscribes to one entity on b.
type watchFunc func(ctx context.Context, b Backend, onErr func(error)) func()

// follow keeps a subscription on whichever backend pick(uid) returns. A
// failed remote listener is replaced at once when the remote left rotation,
// otherwise on the next recheck. The subscription also moves back to the
// remote once it is available again; resume, if set, runs first so writes
// that landed locally in the meantime reach it. The returned function waits
// for the current subscription to stop and must not be called from fn.
func (s *Service) follow(ctx context.Context, uid string, watch watchFunc, resume func(context.Context)) func() {
	if s.remote == nil || uid == "" {
		return watch(ctx, s.local, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	failed := make(chan int, 1)
	gen := 0
	subscribe := func(b Backend) func() {
		gen++
		g := gen
		return watch(ctx, b, func(error) {
			select {
			case failed <- g:
			default:
			}
		})
	}

	b := s.pick(uid)
	stop := subscribe(b)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.recheck)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if stop != nil {
					stop()
				}
				return
			case g := <-failed:
				if g != gen || stop == nil {
					continue
				}
				stop()
				stop = nil
				s.logger.LogWarnf("data.watch", "%s listener for %s failed, resubscribing", b.Name(), uid)
				if s.pick(uid) == b {
					continue
				}
			case <-ticker.C:
				if stop != nil && s.pick(uid) == b {
					continue
				}
			}

			if stop != nil {
				stop()
			}
			if s.pick(uid) == s.remote && b != s.remote && resume != nil {
				resume(ctx)
			}
			if ctx.Err() != nil {
				return
			}
			b = s.pick(uid)
			stop = subscribe(b)
			s.logger.LogInfof("data.watch", "subscription for %s now on %s backend", uid, b.Name())
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Service) followSlot(ctx context.Context, uid string, e Entity, fn func(map[string]any)) func() {
	return s.follow(ctx, uid, func(ctx context.Context, b Backend, onErr func(error)) func() {
		return b.WatchSlot(ctx, uid, e, fn, onErr)
	}, nil)
}

func (s *Service) followItems(ctx context.Context, uid string, e Entity, fn func([]Item), resume func(context.Context)) func() {
	return s.follow(ctx, uid, func(ctx context.Context, b Backend, onErr func(error)) func() {
		return b.WatchItems(ctx, uid, e, fn, onErr)
	}, resume)
}
