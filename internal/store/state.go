package store

import (
	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/identity"
)

// DefaultTab is the tab shown after sign-in.
const DefaultTab = "dashboard"

// MessageKind is the tone of the message box.
type MessageKind string

const (
	MessageInfo    MessageKind = "info"
	MessageSuccess MessageKind = "success"
	MessageWarning MessageKind = "warning"
	MessageError   MessageKind = "error"
)

// Message is the user-visible message box.
type Message struct {
	Visible bool        `json:"visible"`
	Kind    MessageKind `json:"kind,omitempty"`
	Title   string      `json:"title,omitempty"`
	Text    string      `json:"text,omitempty"`
}

// State is the whole in-memory tree. BusinessPlan, FinancialData and
// Vendors mirror the active draft; with no active draft they hold the
// default template.
type State struct {
	IsLoading       bool           `json:"isLoading"`
	IsAuthenticated bool           `json:"isAuthenticated"`
	UserID          string         `json:"userId"`
	User            *identity.User `json:"user,omitempty"`
	ActiveTab       string         `json:"activeTab"`
	Message         Message        `json:"message"`

	BusinessPlan  domain.BusinessPlan  `json:"businessPlan"`
	FinancialData domain.FinancialData `json:"financialData"`
	Vendors       []domain.Vendor      `json:"vendors"`
	Progress      domain.Progress      `json:"progress"`

	Drafts         []domain.Draft `json:"drafts"`
	CurrentDraftID string         `json:"currentDraftId"`
}

// InitialState is the signed-out, empty state.
func InitialState() State {
	return State{
		ActiveTab:     DefaultTab,
		BusinessPlan:  domain.NewBusinessPlan(),
		FinancialData: domain.NewFinancialData(),
		Vendors:       []domain.Vendor{},
		Drafts:        []domain.Draft{},
	}
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.BusinessPlan = s.BusinessPlan.Clone()
	out.FinancialData = s.FinancialData.Clone()
	out.Vendors = domain.CloneVendors(s.Vendors)
	out.Progress.CompletedSections = append([]string(nil), s.Progress.CompletedSections...)
	out.Drafts = domain.CloneDrafts(s.Drafts)
	return out
}

// Draft returns the roster entry with the given id.
func (s State) Draft(id string) (domain.Draft, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Drafts[i], true
	}
	return domain.Draft{}, false
}

// ActiveDraft returns the draft the editing view mirrors.
func (s State) ActiveDraft() (domain.Draft, bool) {
	if s.CurrentDraftID == "" {
		return domain.Draft{}, false
	}
	return s.Draft(s.CurrentDraftID)
}

func (s State) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, d := range s.Drafts {
		if d.ID == id {
			return i
		}
	}
	return -1
}
