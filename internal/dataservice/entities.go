package dataservice

import (
	"context"
	"errors"
	"sort"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
)

// ErrMissingID is returned when a collection write has no document id.
var ErrMissingID = errors.New("document id is required")

const updatedAtField = "updatedAt"

// Business plan

func (s *Service) SaveBusinessPlan(ctx context.Context, uid string, bp domain.BusinessPlan) (WriteResult, error) {
	return s.put(ctx, uid, EntityBusinessPlan, bp)
}

// GetBusinessPlan returns nil when nothing was saved.
func (s *Service) GetBusinessPlan(ctx context.Context, uid string) (domain.BusinessPlan, error) {
	m, err := s.fetch(ctx, uid, EntityBusinessPlan)
	if err != nil || m == nil {
		return nil, err
	}
	return decodeBusinessPlan(m)
}

func (s *Service) SubscribeBusinessPlan(ctx context.Context, uid string, fn func(domain.BusinessPlan)) func() {
	return s.followSlot(ctx, uid, EntityBusinessPlan, func(m map[string]any) {
		if m == nil {
			fn(nil)
			return
		}
		bp, err := decodeBusinessPlan(m)
		if err != nil {
			s.logger.LogError("data.subscribe", err)
			return
		}
		fn(bp)
	})
}

// the stored document carries updatedAt next to the sections
func decodeBusinessPlan(m map[string]any) (domain.BusinessPlan, error) {
	var bp domain.BusinessPlan
	if err := fromMap(withoutField(m, updatedAtField), &bp); err != nil {
		return nil, err
	}
	return bp, nil
}

// Progress

func (s *Service) SaveProgress(ctx context.Context, uid string, p domain.Progress) (WriteResult, error) {
	p.UpdatedAt = s.now().UTC()
	return s.put(ctx, uid, EntityProgress, p)
}

// GetProgress returns nil when nothing was saved.
func (s *Service) GetProgress(ctx context.Context, uid string) (*domain.Progress, error) {
	m, err := s.fetch(ctx, uid, EntityProgress)
	if err != nil || m == nil {
		return nil, err
	}
	var p domain.Progress
	if err := fromMap(m, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) SubscribeProgress(ctx context.Context, uid string, fn func(*domain.Progress)) func() {
	return s.followSlot(ctx, uid, EntityProgress, func(m map[string]any) {
		if m == nil {
			fn(nil)
			return
		}
		var p domain.Progress
		if err := fromMap(m, &p); err != nil {
			s.logger.LogError("data.subscribe", err)
			return
		}
		fn(&p)
	})
}

// Vendors

// AddVendor stores v under a backend-assigned id and returns it with the id set.
func (s *Service) AddVendor(ctx context.Context, uid string, v domain.Vendor) (domain.Vendor, WriteResult, error) {
	v.ID = ""
	id, res, err := s.putItem(ctx, uid, EntityVendors, "", v)
	if err != nil {
		return domain.Vendor{}, res, err
	}
	v.ID = id
	return v, res, nil
}

func (s *Service) SaveVendor(ctx context.Context, uid string, v domain.Vendor) (WriteResult, error) {
	if v.ID == "" {
		return WriteResult{}, ErrMissingID
	}
	_, res, err := s.putItem(ctx, uid, EntityVendors, v.ID, v)
	return res, err
}

func (s *Service) GetVendors(ctx context.Context, uid string) ([]domain.Vendor, error) {
	items, err := s.items(ctx, uid, EntityVendors)
	if err != nil {
		return nil, err
	}
	return s.decodeVendors(items), nil
}

func (s *Service) DeleteVendor(ctx context.Context, uid, id string) (WriteResult, error) {
	return s.removeItem(ctx, uid, EntityVendors, id)
}

func (s *Service) SubscribeVendors(ctx context.Context, uid string, fn func([]domain.Vendor)) func() {
	return s.followItems(ctx, uid, EntityVendors, func(items []Item) {
		fn(s.decodeVendors(items))
	}, nil)
}

func (s *Service) decodeVendors(items []Item) []domain.Vendor {
	out := make([]domain.Vendor, 0, len(items))
	for _, it := range items {
		var v domain.Vendor
		if err := fromMap(it.Data, &v); err != nil {
			s.logger.LogErrorf("data.decode", "vendor %s: %v", it.ID, err)
			continue
		}
		v.ID = it.ID
		out = append(out, v)
	}
	return out
}

// Drafts

// SaveDraft overwrites the full draft payload.
func (s *Service) SaveDraft(ctx context.Context, uid string, d domain.Draft) (WriteResult, error) {
	if d.ID == "" {
		return WriteResult{}, ErrMissingID
	}
	_, res, err := s.putItem(ctx, uid, EntityDrafts, d.ID, d)
	return res, err
}

// GetDraft returns nil when the draft does not exist.
func (s *Service) GetDraft(ctx context.Context, uid, id string) (*domain.Draft, error) {
	m, err := s.fetchItem(ctx, uid, EntityDrafts, id)
	if err != nil || m == nil {
		return nil, err
	}
	var d domain.Draft
	if err := fromMap(m, &d); err != nil {
		return nil, err
	}
	d.ID = id
	return &d, nil
}

// GetDrafts returns every draft ordered by creation time. A remote read
// also folds in drafts saved locally while the remote was unreachable.
func (s *Service) GetDrafts(ctx context.Context, uid string) ([]domain.Draft, error) {
	b := s.pick(uid)
	items, err := s.items(ctx, uid, EntityDrafts)
	if err != nil {
		return nil, err
	}
	drafts := s.decodeDrafts(items)
	if b == s.remote {
		drafts = s.reconcileDrafts(ctx, uid, drafts)
	}
	return drafts, nil
}

// DeleteDraft removes the draft. A remote delete also drops any local copy
// so reconciliation cannot bring it back.
func (s *Service) DeleteDraft(ctx context.Context, uid, id string) (WriteResult, error) {
	res, err := s.removeItem(ctx, uid, EntityDrafts, id)
	if err == nil && res.Backend == BackendRemote {
		s.dropLocalDraft(ctx, uid, id)
	}
	return res, err
}

// SubscribeDrafts delivers the complete roster on every change. The
// subscription survives remote listener failures and follows the remote
// backend in and out of rotation.
func (s *Service) SubscribeDrafts(ctx context.Context, uid string, fn func([]domain.Draft)) func() {
	var resume func(context.Context)
	if s.remote != nil {
		resume = s.resumeDrafts(uid)
	}
	return s.followItems(ctx, uid, EntityDrafts, func(items []Item) {
		fn(s.decodeDrafts(items))
	}, resume)
}

func (s *Service) decodeDrafts(items []Item) []domain.Draft {
	out := make([]domain.Draft, 0, len(items))
	for _, it := range items {
		var d domain.Draft
		if err := fromMap(it.Data, &d); err != nil {
			s.logger.LogErrorf("data.decode", "draft %s: %v", it.ID, err)
			continue
		}
		d.ID = it.ID
		out = append(out, d)
	}
	sortDrafts(out)
	return out
}

func sortDrafts(ds []domain.Draft) {
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.Before(ds[j].CreatedAt)
		}
		return ds[i].ID < ds[j].ID
	})
}

// Roster metadata

func (s *Service) SaveDraftsMetadata(ctx context.Context, uid string, m domain.DraftsMetadata) (WriteResult, error) {
	m.UpdatedAt = s.now().UTC()
	return s.put(ctx, uid, EntityDraftsMetadata, m)
}

// GetDraftsMetadata returns nil when no roster document exists.
func (s *Service) GetDraftsMetadata(ctx context.Context, uid string) (*domain.DraftsMetadata, error) {
	m, err := s.fetch(ctx, uid, EntityDraftsMetadata)
	if err != nil || m == nil {
		return nil, err
	}
	var md domain.DraftsMetadata
	if err := fromMap(m, &md); err != nil {
		return nil, err
	}
	return &md, nil
}
