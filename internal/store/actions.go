package store

import (
	"time"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/identity"
)

// Action is a state transition handled by Reduce. Ids and timestamps are
// carried in the action so Reduce stays deterministic.
type Action interface {
	action()
}

type SetLoading struct{ Loading bool }

// SetAuth records the signed-in identity; nil means signed out.
type SetAuth struct{ User *identity.User }

type SetActiveTab struct{ Tab string }

type ShowMessage struct {
	Kind  MessageKind
	Title string
	Text  string
}

type HideMessage struct{}

// SetDrafts replaces the roster.
type SetDrafts struct{ Drafts []domain.Draft }

// SetCurrentDraftID switches the active draft. An empty id clears it.
type SetCurrentDraftID struct{ ID string }

// CreateDraft appends a new draft and makes it active. Base, when set, is
// deep-copied instead of starting from the template.
type CreateDraft struct {
	ID   string
	Name string
	Base *domain.Draft
	Now  time.Time
}

// DraftChanges is a partial update to one draft. Nil fields are left alone.
type DraftChanges struct {
	Name          *string              `json:"name,omitempty"`
	BusinessPlan  domain.BusinessPlan  `json:"businessPlan,omitempty"`
	FinancialData domain.FinancialData `json:"financialData,omitempty"`
	Vendors       *[]domain.Vendor     `json:"vendors,omitempty"`
}

type UpdateDraft struct {
	ID      string
	Changes DraftChanges
	Now     time.Time
}

// UpdateBusinessPlan shallow-merges Data into one section of the active draft.
type UpdateBusinessPlan struct {
	Section string
	Data    map[string]any
	Now     time.Time
}

type UpdateFinancialData struct {
	Section string
	Data    map[string]any
	Now     time.Time
}

// SetVendors replaces the active draft's vendor list.
type SetVendors struct {
	Vendors []domain.Vendor
	Now     time.Time
}

type SetProgress struct{ Progress domain.Progress }

type DeleteDraft struct{ ID string }

// DuplicateDraft copies OriginalID to NewID without switching the active draft.
type DuplicateDraft struct {
	OriginalID string
	NewID      string
	Name       string
	Now        time.Time
}

// TouchDraft refreshes a draft's updatedAt.
type TouchDraft struct {
	ID  string
	Now time.Time
}

// Reset returns to the signed-out state.
type Reset struct{}

func (SetLoading) action()          {}
func (SetAuth) action()             {}
func (SetActiveTab) action()        {}
func (ShowMessage) action()         {}
func (HideMessage) action()         {}
func (SetDrafts) action()           {}
func (SetCurrentDraftID) action()   {}
func (CreateDraft) action()         {}
func (UpdateDraft) action()         {}
func (UpdateBusinessPlan) action()  {}
func (UpdateFinancialData) action() {}
func (SetVendors) action()          {}
func (SetProgress) action()         {}
func (DeleteDraft) action()         {}
func (DuplicateDraft) action()      {}
func (TouchDraft) action()          {}
func (Reset) action()               {}
