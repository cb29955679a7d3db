package dataservice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/metrics"
)

const userFanout = 8

// GetAllUsers derives one record per user that owns at least one draft.
// Identity details come from the directory when the remote backend serves
// the call.
func (s *Service) GetAllUsers(ctx context.Context) ([]domain.UserRecord, error) {
	b := s.shared()
	start := time.Now()
	uids, err := b.Users(ctx)
	metrics.ObserveData(b.Name(), "users", "list", start, err)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		records []domain.UserRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(userFanout)
	for _, uid := range uids {
		g.Go(func() error {
			items, err := b.Items(gctx, uid, EntityDrafts)
			if err != nil {
				return fmt.Errorf("list drafts for %s: %w", uid, err)
			}
			drafts := s.decodeDrafts(items)
			if len(drafts) == 0 {
				return nil
			}

			rec := domain.UserRecord{
				UID:        uid,
				CreatedAt:  drafts[0].CreatedAt,
				DraftCount: len(drafts),
				Drafts:     make([]domain.DraftMetadata, 0, len(drafts)),
			}
			for _, d := range drafts {
				rec.Drafts = append(rec.Drafts, d.Metadata())
			}
			if b.Name() == BackendRemote && s.directory != nil {
				s.enrich(gctx, &rec)
			}

			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].UID < records[j].UID
	})
	return records, nil
}

func (s *Service) enrich(ctx context.Context, rec *domain.UserRecord) {
	info, err := s.directory.LookupUser(ctx, rec.UID)
	if err != nil {
		s.logger.LogWarnf("data.users", "lookup %s: %v", rec.UID, err)
		return
	}
	rec.Email = info.Email
	rec.DisplayName = info.DisplayName
	rec.IsAnonymous = info.IsAnonymous
	if !info.CreatedAt.IsZero() {
		rec.CreatedAt = info.CreatedAt
	}
}

// DeleteUserAccount removes everything stored for uid. Local copies are
// cleared too when the remote backend handled the call.
func (s *Service) DeleteUserAccount(ctx context.Context, uid string) error {
	if uid == "" {
		return ErrMissingUser
	}
	b := s.pick(uid)
	start := time.Now()
	err := b.Purge(ctx, uid)
	metrics.ObserveData(b.Name(), "users", "delete", start, err)
	if err != nil {
		return err
	}
	if b != s.local {
		if err := s.local.Purge(ctx, uid); err != nil {
			s.logger.LogWarnf("data.users", "clear local copies for %s: %v", uid, err)
		}
	}
	s.logger.LogInfof("data.users", "deleted data for user %s", uid)
	return nil
}

// MigrateUserData copies every document from one user namespace to another.
// It is a no-op when both ids are the same. Existing documents under toUID
// with the same ids are overwritten.
func (s *Service) MigrateUserData(ctx context.Context, fromUID, toUID string) error {
	if fromUID == toUID {
		return nil
	}
	if fromUID == "" || toUID == "" {
		return ErrMissingUser
	}
	b := s.pick(toUID)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range []Entity{EntityBusinessPlan, EntityProgress, EntityDraftsMetadata} {
		g.Go(func() error {
			m, err := b.Fetch(gctx, fromUID, e)
			if err != nil || m == nil {
				return err
			}
			return ignoreDegraded(b.Put(gctx, toUID, e, m))
		})
	}
	for _, e := range []Entity{EntityDrafts, EntityVendors} {
		g.Go(func() error {
			items, err := b.Items(gctx, fromUID, e)
			if err != nil {
				return err
			}
			for _, it := range items {
				if _, err := b.PutItem(gctx, toUID, e, it.ID, it.Data); ignoreDegraded(err) != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	metrics.ObserveData(b.Name(), "users", "migrate", start, err)
	if err != nil {
		return fmt.Errorf("migrate %s to %s: %w", fromUID, toUID, err)
	}
	s.logger.LogInfof("data.users", "migrated data from %s to %s", fromUID, toUID)
	return nil
}

func ignoreDegraded(err error) error {
	if errors.Is(err, errDegraded) {
		return nil
	}
	return err
}
