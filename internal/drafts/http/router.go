package http

import "github.com/gin-gonic/gin"

// Register registers the planner routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/state", h.GetState)
	rg.GET("/state/stream", h.StreamState)

	rg.GET("/drafts", h.ListDrafts)
	rg.POST("/drafts", h.CreateDraft)
	rg.PUT("/drafts/current", h.SetCurrentDraft)
	rg.PATCH("/drafts/:id", h.UpdateDraft)
	rg.DELETE("/drafts/:id", h.DeleteDraft)
	rg.POST("/drafts/:id/duplicate", h.DuplicateDraft)

	rg.PATCH("/business-plan/:section", h.UpdateBusinessPlan)
	rg.PATCH("/financial-data/:section", h.UpdateFinancialData)

	rg.POST("/vendors", h.AddVendor)
	rg.DELETE("/vendors/:id", h.RemoveVendor)

	rg.PUT("/progress", h.UpdateProgress)
	rg.POST("/save", h.Save)

	rg.PUT("/ui/tab", h.SetActiveTab)
	rg.DELETE("/ui/message", h.DismissMessage)
}

// RegisterAdmin registers the user administration routes
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.DELETE("/users/:uid", h.DeleteUser)
}
