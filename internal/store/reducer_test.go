package store

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/identity"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func reduceAll(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func activeIsValid(t *testing.T, s State) {
	t.Helper()
	if s.CurrentDraftID == "" {
		return
	}
	_, ok := s.Draft(s.CurrentDraftID)
	assert.True(t, ok, "active draft %q missing from roster", s.CurrentDraftID)
}

func TestReduce_ActivePointerAlwaysInRoster(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := InitialState()
	next := 0
	for i := 0; i < 500; i++ {
		var a Action
		switch rng.Intn(4) {
		case 0:
			next++
			a = CreateDraft{ID: fmt.Sprintf("d%d", next), Now: t0}
		case 1:
			a = DeleteDraft{ID: fmt.Sprintf("d%d", rng.Intn(next+2))}
		case 2:
			a = SetCurrentDraftID{ID: fmt.Sprintf("d%d", rng.Intn(next+2))}
		default:
			a = SetCurrentDraftID{}
		}
		s = Reduce(s, a)
		activeIsValid(t, s)
	}
}

func TestReduce_UpdateKeepsRosterAndViewInSync(t *testing.T) {
	s := reduceAll(InitialState(), CreateDraft{ID: "d1", Name: "Bistro", Now: t0})
	before, _ := s.Draft("d1")

	for i := 0; i < 3; i++ {
		prev, _ := s.Draft("d1")
		// same clock reading every time
		s = Reduce(s, UpdateBusinessPlan{
			Section: domain.SectionExecutiveSummary,
			Data:    map[string]any{"businessName": fmt.Sprintf("Foo %d", i)},
			Now:     t0,
		})
		cur, _ := s.Draft("d1")
		assert.True(t, cur.UpdatedAt.After(prev.UpdatedAt))
		assert.Equal(t, before.ID, cur.ID)
		assert.Equal(t, before.Name, cur.Name)
		assert.Equal(t, cur.BusinessPlan, s.BusinessPlan)
	}

	s = Reduce(s, UpdateFinancialData{
		Section: domain.SectionRevenue,
		Data:    map[string]any{"weeklyCovers": 900.0},
		Now:     t0.Add(time.Hour),
	})
	cur, _ := s.Draft("d1")
	assert.Equal(t, t0.Add(time.Hour), cur.UpdatedAt)
	assert.Equal(t, 900.0, s.FinancialData[domain.SectionRevenue]["weeklyCovers"])
	assert.Equal(t, cur.FinancialData, s.FinancialData)
	// other fields of the section survive the merge
	assert.Equal(t, "Foo 2", s.BusinessPlan[domain.SectionExecutiveSummary]["businessName"])
}

func TestReduce_DeleteIsIdempotent(t *testing.T) {
	s := reduceAll(InitialState(),
		CreateDraft{ID: "d1", Now: t0},
		CreateDraft{ID: "d2", Now: t0},
	)
	once := Reduce(s, DeleteDraft{ID: "d1"})
	twice := Reduce(once, DeleteDraft{ID: "d1"})
	assert.Equal(t, once, twice)
	assert.Equal(t, "d2", twice.CurrentDraftID)
	assert.Len(t, twice.Drafts, 1)
}

func TestReduce_DuplicateIsIndependent(t *testing.T) {
	s := reduceAll(InitialState(),
		CreateDraft{ID: "orig", Name: "Original", Now: t0},
		UpdateBusinessPlan{Section: domain.SectionIdeation, Data: map[string]any{"cuisineType": "Thai"}, Now: t0},
		DuplicateDraft{OriginalID: "orig", NewID: "copy", Now: t0.Add(time.Minute)},
	)
	require.Len(t, s.Drafts, 2)
	assert.Equal(t, "orig", s.CurrentDraftID, "duplicate does not switch drafts")

	dup, ok := s.Draft("copy")
	require.True(t, ok)
	assert.Equal(t, "Original (Copy)", dup.Name)
	assert.Equal(t, "Thai", dup.BusinessPlan[domain.SectionIdeation]["cuisineType"])

	s = reduceAll(s,
		SetCurrentDraftID{ID: "copy"},
		UpdateBusinessPlan{Section: domain.SectionIdeation, Data: map[string]any{"cuisineType": "Mexican"}, Now: t0},
		SetVendors{Vendors: []domain.Vendor{{ID: "v1", Name: "Ana"}}, Now: t0},
	)
	orig, _ := s.Draft("orig")
	assert.Equal(t, "Thai", orig.BusinessPlan[domain.SectionIdeation]["cuisineType"])
	assert.Empty(t, orig.Vendors)

	named := Reduce(s, DuplicateDraft{OriginalID: "orig", NewID: "named", Name: "Second location", Now: t0})
	d, _ := named.Draft("named")
	assert.Equal(t, "Second location", d.Name)
}

func TestReduce_DeleteOnlyDraftThenCreate(t *testing.T) {
	s := reduceAll(InitialState(), CreateDraft{ID: "only", Now: t0})
	s = Reduce(s, DeleteDraft{ID: "only"})
	assert.Empty(t, s.CurrentDraftID)
	assert.Empty(t, s.Drafts)
	assert.Equal(t, domain.NewBusinessPlan(), s.BusinessPlan)

	s = Reduce(s, CreateDraft{ID: "next", Now: t0})
	assert.Equal(t, "next", s.CurrentDraftID)
	assert.Len(t, s.Drafts, 1)
}

func TestReduce_CreateDraft(t *testing.T) {
	base := domain.SampleDraft("sample", t0)
	s := reduceAll(InitialState(), CreateDraft{ID: "d1", Name: "From sample", Base: &base, Now: t0})

	d, ok := s.Draft("d1")
	require.True(t, ok)
	assert.Equal(t, "From sample", d.Name)
	assert.Equal(t, "Harbor Street Bistro", d.BusinessPlan[domain.SectionExecutiveSummary]["businessName"])
	assert.Len(t, s.Vendors, 2)

	s = Reduce(s, UpdateBusinessPlan{Section: domain.SectionExecutiveSummary, Data: map[string]any{"businessName": "Other"}, Now: t0})
	assert.Equal(t, "Harbor Street Bistro", base.BusinessPlan[domain.SectionExecutiveSummary]["businessName"])

	t.Run("default name", func(t *testing.T) {
		s := Reduce(InitialState(), CreateDraft{ID: "d", Now: t0})
		d, _ := s.Draft("d")
		assert.Equal(t, domain.DefaultDraftName, d.Name)
	})

	t.Run("duplicate id ignored", func(t *testing.T) {
		again := Reduce(s, CreateDraft{ID: "d1", Now: t0})
		assert.Equal(t, s, again)
	})
}

func TestReduce_ActivePointer(t *testing.T) {
	s := reduceAll(InitialState(),
		CreateDraft{ID: "a", Now: t0},
		UpdateBusinessPlan{Section: domain.SectionIdeation, Data: map[string]any{"cuisineType": "Thai"}, Now: t0},
		CreateDraft{ID: "b", Now: t0},
	)
	assert.Equal(t, "b", s.CurrentDraftID)
	assert.Equal(t, "", s.BusinessPlan[domain.SectionIdeation]["cuisineType"])

	t.Run("switching re-derives the view", func(t *testing.T) {
		s := Reduce(s, SetCurrentDraftID{ID: "a"})
		assert.Equal(t, "Thai", s.BusinessPlan[domain.SectionIdeation]["cuisineType"])
	})

	t.Run("unknown id leaves pointer", func(t *testing.T) {
		assert.Equal(t, "b", Reduce(s, SetCurrentDraftID{ID: "nope"}).CurrentDraftID)
	})

	t.Run("set drafts heals dangling pointer", func(t *testing.T) {
		a, _ := s.Draft("a")
		healed := Reduce(s, SetDrafts{Drafts: []domain.Draft{a}})
		assert.Equal(t, "a", healed.CurrentDraftID)
		assert.Equal(t, "Thai", healed.BusinessPlan[domain.SectionIdeation]["cuisineType"])

		empty := Reduce(s, SetDrafts{})
		assert.Empty(t, empty.CurrentDraftID)
		assert.NotNil(t, empty.Drafts)
	})

	t.Run("set drafts selects the first draft when nothing is active", func(t *testing.T) {
		a, _ := s.Draft("a")
		b, _ := s.Draft("b")
		cleared := Reduce(s, SetDrafts{})
		require.Empty(t, cleared.CurrentDraftID)

		back := Reduce(cleared, SetDrafts{Drafts: []domain.Draft{a, b}})
		assert.Equal(t, "a", back.CurrentDraftID)
		assert.Equal(t, "Thai", back.BusinessPlan[domain.SectionIdeation]["cuisineType"])
	})

	t.Run("no active draft edits only the view", func(t *testing.T) {
		s := reduceAll(s,
			SetCurrentDraftID{},
			UpdateBusinessPlan{Section: domain.SectionIdeation, Data: map[string]any{"cuisineType": "Greek"}, Now: t0},
			SetVendors{Vendors: []domain.Vendor{{ID: "v"}}, Now: t0},
		)
		assert.Equal(t, "Greek", s.BusinessPlan[domain.SectionIdeation]["cuisineType"])
		assert.Len(t, s.Vendors, 1)
		for _, d := range s.Drafts {
			assert.NotEqual(t, "Greek", d.BusinessPlan[domain.SectionIdeation]["cuisineType"])
			assert.Empty(t, d.Vendors)
		}
	})
}

func TestReduce_UpdateDraft(t *testing.T) {
	s := reduceAll(InitialState(),
		CreateDraft{ID: "a", Now: t0},
		CreateDraft{ID: "b", Now: t0},
	)
	name := "Renamed"
	vendors := []domain.Vendor{{ID: "v1"}}
	s = Reduce(s, UpdateDraft{ID: "a", Changes: DraftChanges{Name: &name, Vendors: &vendors}, Now: t0})

	a, _ := s.Draft("a")
	assert.Equal(t, "Renamed", a.Name)
	assert.Len(t, a.Vendors, 1)
	assert.True(t, a.UpdatedAt.After(t0))
	assert.Empty(t, s.Vendors, "inactive draft edits do not touch the view")

	vendors[0].Name = "mutated"
	a, _ = s.Draft("a")
	assert.Empty(t, a.Vendors[0].Name)

	assert.Equal(t, s, Reduce(s, UpdateDraft{ID: "missing", Changes: DraftChanges{Name: &name}, Now: t0}))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := reduceAll(InitialState(), CreateDraft{ID: "a", Now: t0})
	snapshot := s.Clone()

	reduceAll(s,
		UpdateBusinessPlan{Section: domain.SectionIdeation, Data: map[string]any{"cuisineType": "Thai"}, Now: t0},
		UpdateFinancialData{Section: domain.SectionRevenue, Data: map[string]any{"x": 1.0}, Now: t0},
		SetVendors{Vendors: []domain.Vendor{{ID: "v"}}, Now: t0},
		TouchDraft{ID: "a", Now: t0.Add(time.Hour)},
		DuplicateDraft{OriginalID: "a", NewID: "b", Now: t0},
		DeleteDraft{ID: "a"},
	)
	assert.Equal(t, snapshot, s)
}

func TestReduce_SessionAndUI(t *testing.T) {
	u := &identity.User{UID: "u1", Email: "a@example.com"}
	s := reduceAll(InitialState(),
		SetAuth{User: u},
		SetLoading{Loading: true},
		SetActiveTab{Tab: "financials"},
		ShowMessage{Kind: MessageError, Title: "Oops", Text: "Broken"},
	)
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "u1", s.UserID)
	assert.True(t, s.IsLoading)
	assert.Equal(t, "financials", s.ActiveTab)
	assert.Equal(t, Message{Visible: true, Kind: MessageError, Title: "Oops", Text: "Broken"}, s.Message)

	u.Email = "changed@example.com"
	assert.Equal(t, "a@example.com", s.User.Email)

	s = Reduce(s, HideMessage{})
	assert.False(t, s.Message.Visible)

	s = Reduce(s, SetAuth{})
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.UserID)

	assert.Equal(t, InitialState(), Reduce(s, Reset{}))
}

func TestReduce_SetProgress(t *testing.T) {
	sections := []string{"ideation"}
	s := Reduce(InitialState(), SetProgress{Progress: domain.Progress{CompletedSections: sections, PercentComplete: 12.5}})
	sections[0] = "changed"
	assert.Equal(t, []string{"ideation"}, s.Progress.CompletedSections)
	assert.Equal(t, 12.5, s.Progress.PercentComplete)
}
