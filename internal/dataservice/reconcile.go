package dataservice

import (
	"context"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
)

// Writes for a signed-in user land locally only while the remote backend is
// out of rotation, so any local draft of such a user is an unsynced copy.

// reconcileDrafts merges the user's local drafts into a remote roster. A
// local draft wins when the remote has no copy or an older one and is then
// written to the remote. Local copies are dropped once the remote holds the
// same or a newer version; a copy whose push failed stays for the next pass.
func (s *Service) reconcileDrafts(ctx context.Context, uid string, drafts []domain.Draft) []domain.Draft {
	items, err := s.local.Items(ctx, uid, EntityDrafts)
	if err != nil {
		s.logger.LogWarnf("data.reconcile", "local drafts for %s: %v", uid, err)
		return drafts
	}
	if len(items) == 0 {
		return drafts
	}

	index := make(map[string]int, len(drafts))
	for i, d := range drafts {
		index[d.ID] = i
	}
	pushed := 0
	for _, d := range s.decodeDrafts(items) {
		i, ok := index[d.ID]
		if ok && !d.UpdatedAt.After(drafts[i].UpdatedAt) {
			s.dropLocalDraft(ctx, uid, d.ID)
			continue
		}

		if ok {
			drafts[i] = d
		} else {
			index[d.ID] = len(drafts)
			drafts = append(drafts, d)
		}
		if err := s.pushDraft(ctx, uid, d); err != nil {
			s.logger.LogWarnf("data.reconcile", "push draft %s for %s: %v", d.ID, uid, err)
			continue
		}
		pushed++
		s.dropLocalDraft(ctx, uid, d.ID)
	}
	if pushed > 0 {
		s.logger.LogInfof("data.reconcile", "pushed %d local drafts for %s", pushed, uid)
	}
	sortDrafts(drafts)
	return drafts
}

// resumeDrafts reconciles against the remote roster before a subscription
// moves back to the remote backend.
func (s *Service) resumeDrafts(uid string) func(context.Context) {
	return func(ctx context.Context) {
		items, err := s.remote.Items(ctx, uid, EntityDrafts)
		if err != nil {
			s.logger.LogWarnf("data.reconcile", "remote drafts for %s: %v", uid, err)
			return
		}
		s.reconcileDrafts(ctx, uid, s.decodeDrafts(items))
	}
}

func (s *Service) pushDraft(ctx context.Context, uid string, d domain.Draft) error {
	data, err := toMap(d)
	if err != nil {
		return err
	}
	_, err = s.remote.PutItem(ctx, uid, EntityDrafts, d.ID, data)
	return err
}

func (s *Service) dropLocalDraft(ctx context.Context, uid, id string) {
	if err := s.local.RemoveItem(ctx, uid, EntityDrafts, id); err != nil {
		s.logger.LogWarnf("data.reconcile", "drop local draft %s for %s: %v", id, uid, err)
	}
}
