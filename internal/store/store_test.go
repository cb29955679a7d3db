package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restoplan/planner-backend/internal/dataservice"
	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/storage/local"
	"github.com/restoplan/planner-backend/internal/storage/remote"
)

const appID = "test-app"

// idleClock never ticks, so local subscriptions only fire their initial poll.
type idleClock struct{}

func (idleClock) Now() time.Time                       { return time.Now() }
func (idleClock) NewTicker(time.Duration) local.Ticker { return idleTicker{} }

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

type fullKV struct{}

func (fullKV) Get(context.Context, string) ([]byte, error) { return nil, local.ErrKeyNotFound }
func (fullKV) Set(context.Context, string, []byte) error   { return errors.New("quota exceeded") }
func (fullKV) Delete(context.Context, string) error        { return nil }
func (fullKV) Keys(context.Context, string) ([]string, error) {
	return nil, nil
}

// failingSaves rejects every draft write the way an unreachable remote does.
type failingSaves struct {
	*dataservice.Service
	err error
}

func (f failingSaves) SaveDraft(context.Context, string, domain.Draft) (dataservice.WriteResult, error) {
	return dataservice.WriteResult{}, f.err
}

// blockingSaves holds draft writes until release is closed once armed.
type blockingSaves struct {
	*dataservice.Service
	armed   atomic.Bool
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSaves) SaveDraft(ctx context.Context, uid string, d domain.Draft) (dataservice.WriteResult, error) {
	if b.armed.Load() {
		b.calls.Add(1)
		b.entered <- struct{}{}
		<-b.release
	}
	return b.Service.SaveDraft(ctx, uid, d)
}

func fileKV(t *testing.T) *local.FileKV {
	t.Helper()
	kv, err := local.NewFileKV(t.TempDir())
	require.NoError(t, err)
	return kv
}

func newData(kv local.KV) *dataservice.Service {
	return dataservice.New(local.NewStore(kv, local.WithClock(idleClock{})), appID)
}

func signedIn(t *testing.T, email string) *identity.Service {
	t.Helper()
	auth := identity.NewService(identity.NewOfflineProvider())
	_, err := auth.SignInWithEmail(context.Background(), email, "secret")
	require.NoError(t, err)
	return auth
}

func startStore(t *testing.T, data DataService, auth AuthSource, opts ...Option) *Store {
	t.Helper()
	s := New(data, auth, opts...)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

func TestStore_NewUserGetsDefaultDraft(t *testing.T) {
	kv := fileKV(t)
	data := newData(kv)
	s := startStore(t, data, signedIn(t, "new@example.com"))

	st := s.State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	require.Len(t, st.Drafts, 1)
	assert.Equal(t, st.Drafts[0].ID, st.CurrentDraftID)
	assert.Equal(t, domain.DefaultDraftName, st.Drafts[0].Name)
	assert.False(t, s.Dirty())

	stored, err := data.GetDrafts(context.Background(), st.UserID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, st.CurrentDraftID, stored[0].ID)

	meta, err := data.GetDraftsMetadata(context.Background(), st.UserID)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.Contains(st.CurrentDraftID))
}

func TestStore_SaveThenReload(t *testing.T) {
	ctx := context.Background()
	kv := fileKV(t)

	s := startStore(t, newData(kv), signedIn(t, "owner@example.com"))
	d := s.CreateDraft("A", nil)
	assert.True(t, s.Dirty())
	require.NoError(t, s.UpdateBusinessPlan(domain.SectionExecutiveSummary, map[string]any{"businessName": "Foo"}))
	require.NoError(t, s.UpdateFinancialData(domain.SectionRevenue, map[string]any{"weeklyCovers": 850.0}))
	v := s.AddVendor(domain.Vendor{Name: "Dana", Company: "Bayside Seafood"})
	assert.NotEmpty(t, v.ID)

	require.NoError(t, s.SaveData(ctx))
	assert.False(t, s.Dirty())
	saved := s.State()
	assert.Equal(t, MessageSuccess, saved.Message.Kind)
	assert.Contains(t, saved.Message.Text, `"A"`)
	s.Close()

	reloaded := startStore(t, newData(kv), signedIn(t, "owner@example.com"))
	st := reloaded.State()
	assert.Equal(t, d.ID, st.CurrentDraftID)
	assert.Len(t, st.Drafts, 2)
	assert.Equal(t, "Foo", st.BusinessPlan[domain.SectionExecutiveSummary]["businessName"])
	assertSameJSON(t, saved.BusinessPlan, st.BusinessPlan)
	assertSameJSON(t, saved.FinancialData, st.FinancialData)
	assertSameJSON(t, saved.Vendors, st.Vendors)
}

func assertSameJSON(t *testing.T, want, got any) {
	t.Helper()
	w, err := json.Marshal(want)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}

func TestStore_SaveDataRequiresUser(t *testing.T) {
	kv := fileKV(t)
	s := startStore(t, newData(kv), identity.NewService(identity.NewOfflineProvider()))
	s.CreateDraft("Unsaved", nil)

	err := s.SaveData(context.Background())
	require.ErrorIs(t, err, ErrNotSignedIn)
	assert.Equal(t, MessageWarning, s.State().Message.Kind)

	keys, err := kv.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys, "nothing may be written without a user")
}

func TestStore_SaveDataWithoutActiveDraft(t *testing.T) {
	s := startStore(t, newData(fileKV(t)), signedIn(t, "a@example.com"))
	require.NoError(t, s.SetCurrentDraftID(""))
	assert.ErrorIs(t, s.SaveData(context.Background()), ErrNoActiveDraft)
}

func TestStore_SaveFailureNamesDraft(t *testing.T) {
	offline := &remote.Error{Op: "set", Kind: remote.ErrUnavailable, Err: errors.New("dial tcp: connection refused")}
	data := failingSaves{Service: newData(fileKV(t)), err: offline}
	s := startStore(t, data, signedIn(t, "a@example.com"))

	err := s.SaveData(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnavailable)

	msg := s.State().Message
	assert.Equal(t, MessageError, msg.Kind)
	assert.Contains(t, msg.Text, fmt.Sprintf("%q", domain.DefaultDraftName))
	assert.Contains(t, msg.Text, "could not be reached")
	assert.True(t, s.Dirty())
}

func TestStore_SaveDataSharesInFlightWrite(t *testing.T) {
	ctx := context.Background()
	data := &blockingSaves{
		Service: newData(fileKV(t)),
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	s := startStore(t, data, signedIn(t, "a@example.com"))
	data.armed.Store(true)

	errs := make(chan error, 2)
	go func() { errs <- s.SaveData(ctx) }()
	select {
	case <-data.entered:
	case <-time.After(time.Second):
		t.Fatal("first save never reached the data service")
	}

	go func() { errs <- s.SaveData(ctx) }()
	// give the second call time to join the in-flight write
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, errs, "both calls wait on the blocked write")
	close(data.release)

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("SaveData did not return")
		}
	}
	assert.Equal(t, int32(1), data.calls.Load())
	assert.False(t, s.Dirty())
}

func TestStore_DegradedSaveIsNotAnError(t *testing.T) {
	s := startStore(t, newData(fullKV{}), signedIn(t, "a@example.com"))
	require.NoError(t, s.UpdateBusinessPlan(domain.SectionIdeation, map[string]any{"cuisineType": "Thai"}))

	require.NoError(t, s.SaveData(context.Background()))
	st := s.State()
	assert.Equal(t, MessageWarning, st.Message.Kind)
	assert.Contains(t, st.Message.Text, "local storage")
	assert.True(t, s.Dirty(), "unsaved edits stay protected from snapshots")
	assert.Equal(t, "Thai", st.BusinessPlan[domain.SectionIdeation]["cuisineType"])
}

func TestStore_DeleteDraft(t *testing.T) {
	ctx := context.Background()
	data := newData(fileKV(t))
	s := startStore(t, data, signedIn(t, "a@example.com"))
	first := s.State().CurrentDraftID

	second := s.CreateDraft("Second", nil)
	require.NoError(t, s.SaveData(ctx))

	require.NoError(t, s.DeleteDraft(ctx, second.ID))
	st := s.State()
	assert.Equal(t, first, st.CurrentDraftID)
	require.Len(t, st.Drafts, 1)

	stored, err := data.GetDrafts(ctx, st.UserID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, first, stored[0].ID)
	meta, err := data.GetDraftsMetadata(ctx, st.UserID)
	require.NoError(t, err)
	assert.False(t, meta.Contains(second.ID))

	// second delete is a no-op
	require.NoError(t, s.DeleteDraft(ctx, second.ID))
	assert.Equal(t, st, s.State())

	t.Run("only draft", func(t *testing.T) {
		require.NoError(t, s.DeleteDraft(ctx, first))
		assert.Empty(t, s.State().CurrentDraftID)

		d := s.CreateDraft("", nil)
		assert.Equal(t, d.ID, s.State().CurrentDraftID)
		assert.Equal(t, domain.DefaultDraftName, d.Name)
	})
}

func TestStore_DraftEditing(t *testing.T) {
	s := startStore(t, newData(fileKV(t)), signedIn(t, "a@example.com"))
	orig := s.State().CurrentDraftID

	dup, err := s.DuplicateDraft(orig, "")
	require.NoError(t, err)
	assert.Equal(t, orig, s.State().CurrentDraftID)
	assert.Equal(t, domain.DefaultDraftName+" (Copy)", dup.Name)

	_, err = s.DuplicateDraft("missing", "x")
	assert.ErrorIs(t, err, domain.ErrDraftNotFound)

	name := "Renamed"
	require.NoError(t, s.UpdateDraft(dup.ID, DraftChanges{Name: &name}))
	d, _ := s.State().Draft(dup.ID)
	assert.Equal(t, "Renamed", d.Name)
	assert.ErrorIs(t, s.UpdateDraft("missing", DraftChanges{Name: &name}), domain.ErrDraftNotFound)

	require.NoError(t, s.SetCurrentDraftID(dup.ID))
	assert.ErrorIs(t, s.SetCurrentDraftID("missing"), domain.ErrDraftNotFound)
	assert.Equal(t, dup.ID, s.State().CurrentDraftID)

	assert.ErrorIs(t, s.UpdateBusinessPlan("nope", nil), domain.ErrUnknownSection)
	assert.ErrorIs(t, s.UpdateFinancialData("nope", nil), domain.ErrUnknownSection)

	v := s.AddVendor(domain.Vendor{ID: "v1", Name: "Lee"})
	assert.Equal(t, "v1", v.ID)
	assert.Len(t, s.State().Vendors, 1)
	s.RemoveVendor("unknown")
	assert.Len(t, s.State().Vendors, 1)
	s.RemoveVendor("v1")
	assert.Empty(t, s.State().Vendors)

	s.SetActiveTab("vendors")
	assert.Equal(t, "vendors", s.State().ActiveTab)
}

func TestStore_Progress(t *testing.T) {
	ctx := context.Background()
	data := newData(fileKV(t))
	s := startStore(t, data, signedIn(t, "a@example.com"))

	s.UpdateProgress(domain.Progress{CompletedSections: []string{"ideation"}, PercentComplete: 12.5})
	require.NoError(t, s.SaveProgress(ctx))

	p, err := data.GetProgress(ctx, s.State().UserID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []string{"ideation"}, p.CompletedSections)

	anon := startStore(t, data, identity.NewService(identity.NewOfflineProvider()))
	assert.ErrorIs(t, anon.SaveProgress(ctx), ErrNotSignedIn)
}

func TestStore_AuthTransitions(t *testing.T) {
	ctx := context.Background()
	auth := signedIn(t, "first@example.com")
	s := startStore(t, newData(fileKV(t)), auth)

	first := s.State()
	extra := s.CreateDraft("First user's extra", nil)

	_, err := auth.UpdateProfile(ctx, "Chef")
	require.NoError(t, err)
	st := s.State()
	assert.Equal(t, "Chef", st.User.DisplayName)
	_, kept := st.Draft(extra.ID)
	assert.True(t, kept, "same uid does not reload")

	_, err = auth.SignInWithEmail(ctx, "second@example.com", "secret")
	require.NoError(t, err)
	st = s.State()
	assert.NotEqual(t, first.UserID, st.UserID)
	require.Len(t, st.Drafts, 1)
	_, leaked := st.Draft(extra.ID)
	assert.False(t, leaked)
	assert.False(t, s.Dirty())

	auth.SignOut()
	st = s.State()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.UserID)
	assert.Empty(t, st.Drafts)
	assert.Empty(t, st.CurrentDraftID)
}

func TestStore_SnapshotsSkippedWhileDirty(t *testing.T) {
	s := startStore(t, newData(fileKV(t)), signedIn(t, "a@example.com"))
	uid := s.State().UserID

	require.NoError(t, s.UpdateBusinessPlan(domain.SectionIdeation, map[string]any{"cuisineType": "Thai"}))
	s.onDraftsSnapshot(uid, nil)
	assert.Len(t, s.State().Drafts, 1, "dirty roster is kept")

	require.NoError(t, s.SaveData(context.Background()))
	s.onDraftsSnapshot("someone-else", nil)
	assert.Len(t, s.State().Drafts, 1)

	s.onDraftsSnapshot(uid, nil)
	st := s.State()
	assert.Empty(t, st.Drafts)
	assert.Empty(t, st.CurrentDraftID)

	s.onDraftsSnapshot(uid, []domain.Draft{domain.NewDraft("back", "Back", time.Now())})
	assert.Equal(t, "back", s.State().CurrentDraftID, "a returning roster restores the pointer")
}

func TestStore_RestoresActiveDraft(t *testing.T) {
	ctx := context.Background()
	kv := fileKV(t)
	s := startStore(t, newData(kv), signedIn(t, "a@example.com"))
	first := s.State().CurrentDraftID
	s.CreateDraft("Second", nil)
	require.NoError(t, s.SaveData(ctx))
	require.NoError(t, s.SetCurrentDraftID(first))
	require.NoError(t, s.SaveData(ctx))
	s.Close()

	reloaded := startStore(t, newData(kv), signedIn(t, "a@example.com"))
	assert.Equal(t, first, reloaded.State().CurrentDraftID)
}

func TestStore_Subscribe(t *testing.T) {
	s := startStore(t, newData(fileKV(t)), signedIn(t, "a@example.com"))

	var calls atomic.Int32
	var last atomic.Value
	unsub := s.Subscribe(func(st State) {
		calls.Add(1)
		last.Store(st.ActiveTab)
	})
	v := s.Version()
	s.SetActiveTab("financials")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "financials", last.Load())
	assert.Equal(t, v+1, s.Version())

	unsub()
	unsub()
	s.SetActiveTab("vendors")
	assert.Equal(t, int32(1), calls.Load())
}

func TestStore_UserAdministration(t *testing.T) {
	ctx := context.Background()
	data := newData(fileKV(t))
	owner := startStore(t, data, signedIn(t, "owner@example.com"))
	other := startStore(t, data, signedIn(t, "other@example.com"))
	otherUID := other.State().UserID

	users, err := owner.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, owner.DeleteUserAccount(ctx, otherUID))
	assert.Equal(t, MessageSuccess, owner.State().Message.Kind)
	users, err = owner.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, owner.State().UserID, users[0].UID)

	owner.DismissMessage()
	assert.False(t, owner.State().Message.Visible)
}
