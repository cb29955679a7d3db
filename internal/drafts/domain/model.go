package domain

import "time"

// Section is one flat group of form fields. Values are strings, numbers,
// booleans, lists ([]any) or nested records (map[string]any).
type Section map[string]any

// BusinessPlan maps section names (see BusinessPlanSections) to their fields.
type BusinessPlan map[string]Section

// FinancialData maps section names (see FinancialSections) to their fields.
type FinancialData map[string]Section

// Vendor is one supplier contact on a draft's vendor list.
type Vendor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Notes    string `json:"notes,omitempty"`
}

// Draft is one complete, independently named business plan, financial model
// and vendor list.
type Draft struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	BusinessPlan  BusinessPlan  `json:"businessPlan"`
	FinancialData FinancialData `json:"financialData"`
	Vendors       []Vendor      `json:"vendors"`
}

// Metadata returns the lightweight roster entry for the draft.
func (d Draft) Metadata() DraftMetadata {
	return DraftMetadata{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// DraftMetadata is the roster entry kept separately from full payloads.
type DraftMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DraftsMetadata is the per-user roster document.
type DraftsMetadata struct {
	Drafts         []DraftMetadata `json:"drafts"`
	CurrentDraftID string          `json:"currentDraftId,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt,omitempty"`
}

// Contains reports whether the roster lists the given draft id.
func (m DraftsMetadata) Contains(id string) bool {
	for _, d := range m.Drafts {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Progress tracks how far a user got through the planning steps.
type Progress struct {
	CompletedSections []string  `json:"completedSections"`
	CurrentSection    string    `json:"currentSection,omitempty"`
	PercentComplete   float64   `json:"percentComplete"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// UserRecord is the remote-backend view of a user, derived from the drafts
// stored under the user's namespace.
type UserRecord struct {
	UID         string          `json:"uid"`
	Email       string          `json:"email,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	IsAnonymous bool            `json:"isAnonymous"`
	CreatedAt   time.Time       `json:"createdAt"`
	DraftCount  int             `json:"draftCount"`
	Drafts      []DraftMetadata `json:"drafts"`
}
