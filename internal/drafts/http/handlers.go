package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/restoplan/planner-backend/internal/auth"
	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/session"
	"github.com/restoplan/planner-backend/internal/storage/remote"
	"github.com/restoplan/planner-backend/internal/store"
)

func currentSession(c *gin.Context) *session.Session {
	sess := auth.Session(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
	}
	return sess
}

// GetState returns the full application state of the session
func (h *Handler) GetState(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State(), "version": sess.Store.Version()})
}

// ListDrafts returns the roster and the active draft id
func (h *Handler) ListDrafts(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	st := sess.Store.State()
	c.JSON(http.StatusOK, gin.H{
		"drafts":         st.Drafts,
		"currentDraftId": st.CurrentDraftID,
	})
}

// CreateDraft adds a draft and makes it active. The body may name a draft
// to copy from, or ask for the sample plan.
func (h *Handler) CreateDraft(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var req createDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	var base *domain.Draft
	switch {
	case req.BaseDraftID != "":
		d, ok := sess.Store.State().Draft(req.BaseDraftID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
			return
		}
		base = &d
	case req.Sample:
		sample := domain.SampleDraft("", time.Now().UTC())
		base = &sample
		if req.Name == "" {
			req.Name = sample.Name
		}
	}

	d := sess.Store.CreateDraft(req.Name, base)
	c.JSON(http.StatusCreated, gin.H{"draft": d, "state": sess.Store.State()})
}

// UpdateDraft applies a partial update to one draft
func (h *Handler) UpdateDraft(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var changes store.DraftChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := sess.Store.UpdateDraft(c.Param("id"), changes); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

// DeleteDraft removes a draft. Unknown ids succeed.
func (h *Handler) DeleteDraft(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	if err := sess.Store.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

func (h *Handler) DuplicateDraft(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var req duplicateDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	d, err := sess.Store.DuplicateDraft(c.Param("id"), req.Name)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": d, "state": sess.Store.State()})
}

// SetCurrentDraft switches the active draft
func (h *Handler) SetCurrentDraft(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var req currentDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := sess.Store.SetCurrentDraftID(req.ID); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

// UpdateBusinessPlan merges the body into one business plan section
func (h *Handler) UpdateBusinessPlan(c *gin.Context) {
	h.updateSection(c, func(st *store.Store, section string, data map[string]any) error {
		return st.UpdateBusinessPlan(section, data)
	})
}

// UpdateFinancialData merges the body into one financial section
func (h *Handler) UpdateFinancialData(c *gin.Context) {
	h.updateSection(c, func(st *store.Store, section string, data map[string]any) error {
		return st.UpdateFinancialData(section, data)
	})
}

func (h *Handler) updateSection(c *gin.Context, apply func(*store.Store, string, map[string]any) error) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return
	}
	if err := apply(sess.Store, c.Param("section"), data); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

func (h *Handler) AddVendor(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var v domain.Vendor
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if v.Name == "" && v.Company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vendor name or company is required"})
		return
	}
	added := sess.Store.AddVendor(v)
	c.JSON(http.StatusCreated, gin.H{"vendor": added, "state": sess.Store.State()})
}

func (h *Handler) RemoveVendor(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	sess.Store.RemoveVendor(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

// UpdateProgress replaces the progress record and, unless save is false,
// persists it.
func (h *Handler) UpdateProgress(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sess.Store.UpdateProgress(req.Progress)
	if req.Save == nil || *req.Save {
		if err := sess.Store.SaveProgress(c.Request.Context()); err != nil {
			writeStoreError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

// Save persists the active draft. The state's message describes the outcome.
func (h *Handler) Save(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	if err := sess.Store.SaveData(c.Request.Context()); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

func (h *Handler) SetActiveTab(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var req tabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tab is required"})
		return
	}
	sess.Store.SetActiveTab(req.Tab)
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

func (h *Handler) DismissMessage(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	sess.Store.DismissMessage()
	c.JSON(http.StatusOK, gin.H{"state": sess.Store.State()})
}

// writeStoreError maps a store error to a status. The session's state is
// included so the client can show the message the store raised.
func writeStoreError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	if sess := auth.Session(c); sess != nil {
		body["state"] = sess.Store.State()
	}
	c.JSON(storeStatus(err), body)
}

func storeStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownSection):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNoActiveDraft):
		return http.StatusConflict
	case errors.Is(err, remote.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, remote.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, remote.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
