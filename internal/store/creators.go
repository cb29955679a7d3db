package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/metrics"
)

// CreateDraft adds a draft and makes it active. When base is set its
// business plan, financials and vendors are deep-copied.
func (s *Store) CreateDraft(name string, base *domain.Draft) domain.Draft {
	now := s.now().UTC()
	id := s.newID(now)
	next := s.mutate(func(State) (Action, string) {
		return CreateDraft{ID: id, Name: name, Base: base, Now: now}, id
	})
	d, _ := next.Draft(id)
	return d.Clone()
}

// UpdateDraft applies a partial update to any draft in the roster.
func (s *Store) UpdateDraft(id string, changes DraftChanges) error {
	var found bool
	s.mutate(func(st State) (Action, string) {
		if _, found = st.Draft(id); !found {
			return nil, ""
		}
		return UpdateDraft{ID: id, Changes: changes, Now: s.now().UTC()}, id
	})
	if !found {
		return domain.ErrDraftNotFound
	}
	return nil
}

// DeleteDraft removes a draft from memory and, when signed in, from storage
// along with its roster entry. Deleting an unknown id is a no-op.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	var wasPersisted, found bool
	next := s.mutate(func(st State) (Action, string) {
		if _, found = st.Draft(id); !found {
			return nil, ""
		}
		wasPersisted = s.persisted[id]
		delete(s.persisted, id)
		delete(s.dirty, id)
		return DeleteDraft{ID: id}, ""
	})
	if !found || next.UserID == "" {
		return nil
	}

	uid := next.UserID
	if wasPersisted {
		if _, err := s.data.DeleteDraft(ctx, uid, id); err != nil {
			s.logger.LogErrorf("delete_draft", "draft %s for uid=%s: %v", id, uid, err)
			s.show(MessageError, "Delete failed", "The draft could not be deleted: "+reason(err))
			return err
		}
	}
	if _, err := s.data.SaveDraftsMetadata(ctx, uid, s.metadata()); err != nil {
		s.logger.LogErrorf("delete_draft", "metadata for uid=%s: %v", uid, err)
		s.show(MessageError, "Delete failed", "The draft list could not be updated: "+reason(err))
		return err
	}
	return nil
}

// DuplicateDraft copies a draft under a new id without switching to it. An
// empty name becomes "<original> (Copy)".
func (s *Store) DuplicateDraft(originalID, name string) (domain.Draft, error) {
	now := s.now().UTC()
	id := s.newID(now)
	var found bool
	next := s.mutate(func(st State) (Action, string) {
		if _, found = st.Draft(originalID); !found {
			return nil, ""
		}
		return DuplicateDraft{OriginalID: originalID, NewID: id, Name: name, Now: now}, id
	})
	if !found {
		return domain.Draft{}, domain.ErrDraftNotFound
	}
	d, _ := next.Draft(id)
	return d.Clone(), nil
}

// SetCurrentDraftID switches the active draft; an empty id clears it.
func (s *Store) SetCurrentDraftID(id string) error {
	var found bool
	s.mutate(func(st State) (Action, string) {
		if _, found = st.Draft(id); id != "" && !found {
			return nil, ""
		}
		found = true
		return SetCurrentDraftID{ID: id}, ""
	})
	if !found {
		return domain.ErrDraftNotFound
	}
	return nil
}

// UpdateBusinessPlan merges data into one section of the active draft.
func (s *Store) UpdateBusinessPlan(section string, data map[string]any) error {
	if !domain.IsBusinessPlanSection(section) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSection, section)
	}
	s.mutate(func(st State) (Action, string) {
		return UpdateBusinessPlan{Section: section, Data: data, Now: s.now().UTC()}, st.CurrentDraftID
	})
	return nil
}

// UpdateFinancialData merges data into one section of the active draft.
func (s *Store) UpdateFinancialData(section string, data map[string]any) error {
	if !domain.IsFinancialSection(section) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSection, section)
	}
	s.mutate(func(st State) (Action, string) {
		return UpdateFinancialData{Section: section, Data: data, Now: s.now().UTC()}, st.CurrentDraftID
	})
	return nil
}

// AddVendor appends v to the active draft's vendor list, assigning an id
// when v has none.
func (s *Store) AddVendor(v domain.Vendor) domain.Vendor {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	s.mutate(func(st State) (Action, string) {
		vendors := append(domain.CloneVendors(st.Vendors), v)
		return SetVendors{Vendors: vendors, Now: s.now().UTC()}, st.CurrentDraftID
	})
	return v
}

// RemoveVendor drops a vendor from the active draft. Unknown ids are ignored.
func (s *Store) RemoveVendor(id string) {
	s.mutate(func(st State) (Action, string) {
		vendors := make([]domain.Vendor, 0, len(st.Vendors))
		for _, v := range st.Vendors {
			if v.ID != id {
				vendors = append(vendors, v)
			}
		}
		if len(vendors) == len(st.Vendors) {
			return nil, ""
		}
		return SetVendors{Vendors: vendors, Now: s.now().UTC()}, st.CurrentDraftID
	})
}

// UpdateProgress replaces the in-memory progress. SaveProgress persists it.
func (s *Store) UpdateProgress(p domain.Progress) {
	s.Dispatch(SetProgress{Progress: p})
}

func (s *Store) SaveProgress(ctx context.Context) error {
	st := s.current()
	if st.UserID == "" {
		return ErrNotSignedIn
	}
	p := st.Progress
	p.CompletedSections = append([]string(nil), p.CompletedSections...)
	p.UpdatedAt = s.now().UTC()
	if _, err := s.data.SaveProgress(ctx, st.UserID, p); err != nil {
		s.logger.LogErrorf("save_progress", "uid=%s: %v", st.UserID, err)
		s.show(MessageError, "Save failed", "Your progress could not be saved: "+reason(err))
		return err
	}
	s.Dispatch(SetProgress{Progress: p})
	return nil
}

func (s *Store) SetActiveTab(tab string) {
	s.Dispatch(SetActiveTab{Tab: tab})
}

func (s *Store) DismissMessage() {
	s.Dispatch(HideMessage{})
}

// SaveData persists the whole active draft and then the roster metadata.
// Concurrent saves of the same draft share one write.
func (s *Store) SaveData(ctx context.Context) error {
	st := s.current()
	if st.UserID == "" {
		metrics.DraftSaves.WithLabelValues("skipped").Inc()
		s.show(MessageWarning, "Sign in required", "Please sign in to save your drafts.")
		return ErrNotSignedIn
	}
	id := st.CurrentDraftID
	if id == "" {
		metrics.DraftSaves.WithLabelValues("skipped").Inc()
		s.show(MessageWarning, "Nothing to save", "Create or select a draft first.")
		return ErrNoActiveDraft
	}
	_, err, _ := s.saves.Do(id, func() (any, error) {
		return nil, s.save(ctx, st.UserID, id)
	})
	return err
}

func (s *Store) save(ctx context.Context, uid, id string) error {
	s.mu.Lock()
	seq := s.dirty[id]
	s.mu.Unlock()

	s.Dispatch(TouchDraft{ID: id, Now: s.now().UTC()})
	s.Dispatch(SetLoading{Loading: true})
	defer s.Dispatch(SetLoading{Loading: false})

	d, _ := s.current().Draft(id)
	degraded, err := s.writeDraft(ctx, uid, id)
	switch {
	case err != nil:
		metrics.DraftSaves.WithLabelValues("error").Inc()
		s.logger.LogErrorf("save", "draft %s for uid=%s: %v", id, uid, err)
		s.show(MessageError, "Save failed", fmt.Sprintf("Could not save %q: %s", d.Name, reason(err)))
		return fmt.Errorf("save draft %s: %w", id, err)
	case degraded:
		metrics.DraftSaves.WithLabelValues("degraded").Inc()
		s.logger.LogWarnf("save", "draft %s for uid=%s kept in memory only", id, uid)
		s.show(MessageWarning, "Not saved to this device",
			fmt.Sprintf("%q could not be written to local storage. Your changes are kept while this session stays open.", d.Name))
		return nil
	}

	s.mu.Lock()
	if s.dirty[id] == seq {
		delete(s.dirty, id)
	}
	s.mu.Unlock()
	metrics.DraftSaves.WithLabelValues("ok").Inc()
	s.logger.LogInfof("save", "saved draft %s for uid=%s", id, uid)
	s.show(MessageSuccess, "Saved", fmt.Sprintf("%q was saved.", d.Name))
	return nil
}

// GetAllUsers lists every user with stored drafts.
func (s *Store) GetAllUsers(ctx context.Context) ([]domain.UserRecord, error) {
	users, err := s.data.GetAllUsers(ctx)
	if err != nil {
		s.logger.LogErrorf("get_all_users", "%v", err)
		s.show(MessageError, "Could not load users", "The user list could not be loaded: "+reason(err))
		return nil, err
	}
	return users, nil
}

// DeleteUserAccount removes everything stored for uid.
func (s *Store) DeleteUserAccount(ctx context.Context, uid string) error {
	if err := s.data.DeleteUserAccount(ctx, uid); err != nil {
		s.logger.LogErrorf("delete_user", "uid=%s: %v", uid, err)
		s.show(MessageError, "Delete failed", "The account data could not be deleted: "+reason(err))
		return err
	}
	s.logger.LogInfof("delete_user", "deleted data for uid=%s", uid)
	s.show(MessageSuccess, "User deleted", "All data for the account was deleted.")
	return nil
}
