package store

import (
	"fmt"
	"time"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
)

// Reduce applies a to s and returns the next state. It never mutates s and
// never fails: actions that do not apply (unknown ids, duplicate ids) return
// s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetLoading:
		s.IsLoading = a.Loading
		return s

	case SetAuth:
		if a.User == nil {
			s.IsAuthenticated = false
			s.UserID = ""
			s.User = nil
			return s
		}
		u := *a.User
		s.IsAuthenticated = true
		s.UserID = u.UID
		s.User = &u
		return s

	case SetActiveTab:
		s.ActiveTab = a.Tab
		return s

	case ShowMessage:
		s.Message = Message{Visible: true, Kind: a.Kind, Title: a.Title, Text: a.Text}
		return s

	case HideMessage:
		s.Message = Message{}
		return s

	case SetDrafts:
		s.Drafts = domain.CloneDrafts(a.Drafts)
		if s.Drafts == nil {
			s.Drafts = []domain.Draft{}
		}
		// a dangling or empty pointer moves to the first draft
		if s.indexOf(s.CurrentDraftID) < 0 {
			s.CurrentDraftID = firstID(s.Drafts)
		}
		return derive(s)

	case SetCurrentDraftID:
		if a.ID != "" && s.indexOf(a.ID) < 0 {
			return s
		}
		s.CurrentDraftID = a.ID
		return derive(s)

	case CreateDraft:
		if a.ID == "" || s.indexOf(a.ID) >= 0 {
			return s
		}
		d := domain.NewDraft(a.ID, a.Name, a.Now)
		if a.Base != nil {
			base := a.Base.Clone()
			d.BusinessPlan = base.BusinessPlan
			d.FinancialData = base.FinancialData
			d.Vendors = base.Vendors
		}
		s.Drafts = appendDraft(s.Drafts, d)
		s.CurrentDraftID = d.ID
		return derive(s)

	case UpdateDraft:
		return updateDraft(s, a.ID, func(d *domain.Draft) {
			if a.Changes.Name != nil {
				d.Name = *a.Changes.Name
			}
			if a.Changes.BusinessPlan != nil {
				d.BusinessPlan = a.Changes.BusinessPlan.Clone()
			}
			if a.Changes.FinancialData != nil {
				d.FinancialData = a.Changes.FinancialData.Clone()
			}
			if a.Changes.Vendors != nil {
				d.Vendors = domain.CloneVendors(*a.Changes.Vendors)
			}
			d.UpdatedAt = bump(d.UpdatedAt, a.Now)
		})

	case UpdateBusinessPlan:
		if _, ok := s.ActiveDraft(); !ok {
			s.BusinessPlan = mergeBusinessPlan(s.BusinessPlan, a.Section, a.Data)
			return s
		}
		return updateDraft(s, s.CurrentDraftID, func(d *domain.Draft) {
			d.BusinessPlan = mergeBusinessPlan(d.BusinessPlan, a.Section, a.Data)
			d.UpdatedAt = bump(d.UpdatedAt, a.Now)
		})

	case UpdateFinancialData:
		if _, ok := s.ActiveDraft(); !ok {
			s.FinancialData = mergeFinancialData(s.FinancialData, a.Section, a.Data)
			return s
		}
		return updateDraft(s, s.CurrentDraftID, func(d *domain.Draft) {
			d.FinancialData = mergeFinancialData(d.FinancialData, a.Section, a.Data)
			d.UpdatedAt = bump(d.UpdatedAt, a.Now)
		})

	case SetVendors:
		vendors := domain.CloneVendors(a.Vendors)
		if vendors == nil {
			vendors = []domain.Vendor{}
		}
		if _, ok := s.ActiveDraft(); !ok {
			s.Vendors = vendors
			return s
		}
		return updateDraft(s, s.CurrentDraftID, func(d *domain.Draft) {
			d.Vendors = vendors
			d.UpdatedAt = bump(d.UpdatedAt, a.Now)
		})

	case SetProgress:
		s.Progress = a.Progress
		s.Progress.CompletedSections = append([]string(nil), a.Progress.CompletedSections...)
		return s

	case DeleteDraft:
		i := s.indexOf(a.ID)
		if i < 0 {
			return s
		}
		drafts := make([]domain.Draft, 0, len(s.Drafts)-1)
		drafts = append(drafts, s.Drafts[:i]...)
		drafts = append(drafts, s.Drafts[i+1:]...)
		s.Drafts = drafts
		if s.CurrentDraftID == a.ID {
			s.CurrentDraftID = firstID(s.Drafts)
		}
		return derive(s)

	case DuplicateDraft:
		orig, ok := s.Draft(a.OriginalID)
		if !ok || a.NewID == "" || s.indexOf(a.NewID) >= 0 {
			return s
		}
		d := orig.Clone()
		d.ID = a.NewID
		d.Name = a.Name
		if d.Name == "" {
			d.Name = fmt.Sprintf("%s (Copy)", orig.Name)
		}
		d.CreatedAt = a.Now
		d.UpdatedAt = a.Now
		s.Drafts = appendDraft(s.Drafts, d)
		return s

	case TouchDraft:
		return updateDraft(s, a.ID, func(d *domain.Draft) {
			d.UpdatedAt = bump(d.UpdatedAt, a.Now)
		})

	case Reset:
		return InitialState()
	}
	return s
}

// updateDraft replaces the roster entry id with a modified copy and re-derives
// the flat view when that draft is active.
func updateDraft(s State, id string, fn func(*domain.Draft)) State {
	i := s.indexOf(id)
	if i < 0 {
		return s
	}
	drafts := make([]domain.Draft, len(s.Drafts))
	copy(drafts, s.Drafts)
	d := drafts[i].Clone()
	fn(&d)
	drafts[i] = d
	s.Drafts = drafts
	if id == s.CurrentDraftID {
		return derive(s)
	}
	return s
}

// derive points the flat view at the active draft, or at the template when
// nothing is active. The view holds copies so it never aliases the roster.
func derive(s State) State {
	d, ok := s.ActiveDraft()
	if !ok {
		s.BusinessPlan = domain.NewBusinessPlan()
		s.FinancialData = domain.NewFinancialData()
		s.Vendors = []domain.Vendor{}
		return s
	}
	d = d.Clone()
	s.BusinessPlan = d.BusinessPlan
	s.FinancialData = d.FinancialData
	s.Vendors = d.Vendors
	if s.Vendors == nil {
		s.Vendors = []domain.Vendor{}
	}
	return s
}

func appendDraft(ds []domain.Draft, d domain.Draft) []domain.Draft {
	out := make([]domain.Draft, 0, len(ds)+1)
	out = append(out, ds...)
	return append(out, d)
}

func firstID(ds []domain.Draft) string {
	if len(ds) == 0 {
		return ""
	}
	return ds[0].ID
}

func mergeBusinessPlan(bp domain.BusinessPlan, section string, data map[string]any) domain.BusinessPlan {
	out := bp.Clone()
	if out == nil {
		out = domain.BusinessPlan{}
	}
	out[section] = out[section].Merge(data)
	return out
}

func mergeFinancialData(fd domain.FinancialData, section string, data map[string]any) domain.FinancialData {
	out := fd.Clone()
	if out == nil {
		out = domain.FinancialData{}
	}
	out[section] = out[section].Merge(data)
	return out
}

// bump returns now, or prev plus a millisecond when the clock has not moved
// past prev, so updatedAt strictly increases on every edit.
func bump(prev, now time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}
