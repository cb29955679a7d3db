package store

import (
	"context"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/identity"
)

// onAuthStateChanged drives the load sequence. Transitions are serialized by
// authMu so a sign-out cannot interleave with a load.
func (s *Store) onAuthStateChanged(u *identity.User) {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	if u == nil {
		s.stopDraftsLocked()
		s.mu.Lock()
		s.loadedUID = ""
		s.dirty = make(map[string]uint64)
		s.persisted = make(map[string]bool)
		s.mu.Unlock()
		s.Dispatch(Reset{})
		s.logger.LogInfo("auth", "signed out, state reset")
		return
	}

	s.mu.Lock()
	same := s.loadedUID == u.UID
	s.mu.Unlock()
	s.Dispatch(SetAuth{User: u})
	if same {
		return
	}

	s.stopDraftsLocked()
	s.mu.Lock()
	s.loadedUID = u.UID
	s.dirty = make(map[string]uint64)
	s.persisted = make(map[string]bool)
	s.mu.Unlock()
	s.Dispatch(SetCurrentDraftID{})
	s.Dispatch(SetDrafts{})

	s.Dispatch(SetLoading{Loading: true})
	s.load(ctx, u.UID)
	s.Dispatch(SetLoading{Loading: false})

	uid := u.UID
	s.unsubDrafts = s.data.SubscribeDrafts(ctx, uid, func(ds []domain.Draft) {
		s.onDraftsSnapshot(uid, ds)
	})
}

// load reads the user's roster, progress and last active draft. A user with
// no drafts gets a default one, persisted unless the roster read failed.
func (s *Store) load(ctx context.Context, uid string) {
	drafts, draftsErr := s.data.GetDrafts(ctx, uid)
	if draftsErr != nil {
		s.logger.LogErrorf("load", "drafts for uid=%s: %v", uid, draftsErr)
		s.show(MessageError, "Could not load drafts", "Your saved drafts could not be loaded: "+reason(draftsErr))
	}
	meta, err := s.data.GetDraftsMetadata(ctx, uid)
	if err != nil {
		s.logger.LogWarnf("load", "drafts metadata for uid=%s: %v", uid, err)
	}
	progress, err := s.data.GetProgress(ctx, uid)
	if err != nil {
		s.logger.LogWarnf("load", "progress for uid=%s: %v", uid, err)
	}

	s.mu.Lock()
	for _, d := range drafts {
		s.persisted[d.ID] = true
	}
	s.mu.Unlock()
	s.Dispatch(SetDrafts{Drafts: drafts})
	if progress != nil {
		s.Dispatch(SetProgress{Progress: *progress})
	}

	if len(drafts) == 0 {
		now := s.now().UTC()
		id := s.newID(now)
		if draftsErr != nil {
			s.mutate(func(State) (Action, string) {
				return CreateDraft{ID: id, Name: domain.DefaultDraftName, Now: now}, id
			})
		} else {
			s.Dispatch(CreateDraft{ID: id, Name: domain.DefaultDraftName, Now: now})
			degraded, err := s.writeDraft(ctx, uid, id)
			if err != nil {
				s.logger.LogErrorf("load", "persist default draft for uid=%s: %v", uid, err)
			}
			if err != nil || degraded {
				s.markDirty(id)
			}
		}
		s.logger.LogInfof("load", "created default draft %s for uid=%s", id, uid)
	}

	if meta != nil && meta.CurrentDraftID != "" {
		s.Dispatch(SetCurrentDraftID{ID: meta.CurrentDraftID})
	}
	s.mutate(func(st State) (Action, string) {
		if st.CurrentDraftID != "" || len(st.Drafts) == 0 {
			return nil, ""
		}
		return SetCurrentDraftID{ID: st.Drafts[0].ID}, ""
	})
	s.logger.LogInfof("load", "loaded %d drafts for uid=%s", len(drafts), uid)
}

// onDraftsSnapshot replaces the roster with a backend snapshot unless a
// draft has unsaved edits or the session moved to another user.
func (s *Store) onDraftsSnapshot(uid string, ds []domain.Draft) {
	s.mu.Lock()
	if s.loadedUID != uid {
		s.mu.Unlock()
		return
	}
	if len(s.dirty) > 0 {
		s.mu.Unlock()
		s.logger.LogDebugf("snapshot", "skipped %d drafts for uid=%s: unsaved edits", len(ds), uid)
		return
	}
	s.persisted = make(map[string]bool, len(ds))
	for _, d := range ds {
		s.persisted[d.ID] = true
	}
	s.state = Reduce(s.state, SetDrafts{Drafts: ds})
	s.version++
	next, fns := s.state, s.observersLocked()
	s.mu.Unlock()

	s.notify(next, fns)
}

// writeDraft persists draft id and then the roster metadata.
func (s *Store) writeDraft(ctx context.Context, uid, id string) (degraded bool, err error) {
	d, ok := s.current().Draft(id)
	if !ok {
		return false, ErrNoActiveDraft
	}
	res, err := s.data.SaveDraft(ctx, uid, d.Clone())
	if err != nil {
		return false, err
	}
	if !res.Degraded {
		s.mu.Lock()
		s.persisted[id] = true
		s.mu.Unlock()
	}
	mres, err := s.data.SaveDraftsMetadata(ctx, uid, s.metadata())
	if err != nil {
		return false, err
	}
	return res.Degraded || mres.Degraded, nil
}

func (s *Store) markDirty(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editSeq++
	s.dirty[id] = s.editSeq
}

// metadata lists persisted drafts in roster order with the active pointer.
func (s *Store) metadata() domain.DraftsMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := domain.DraftsMetadata{
		Drafts:         make([]domain.DraftMetadata, 0, len(s.state.Drafts)),
		CurrentDraftID: s.state.CurrentDraftID,
	}
	for _, d := range s.state.Drafts {
		if s.persisted[d.ID] {
			m.Drafts = append(m.Drafts, d.Metadata())
		}
	}
	return m
}
